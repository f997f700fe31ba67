// Package checkpoint implements the agent file (.af) format for serializing
// and persisting complete agent state.
//
// An agent file is a versioned JSON snapshot bundling an agent's identity,
// configuration, memory blocks and message history. Snapshots enable:
//   - Complete agent checkpointing and rollback
//   - Agent migration between processes
//   - Portable agent sharing
//
// Snapshot captures a live agent into an AgentFile; Save and Load round-trip
// files on disk with a format version check. The Manager stores timestamped
// snapshots in a directory, one file per checkpoint, named
// <agent>_<timestamp>.af.
package checkpoint
