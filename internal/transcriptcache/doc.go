// Package transcriptcache remembers finished transcripts by the SHA-256 of the
// source media bytes so identical uploads never reach the remote service twice.
//
// Cache keeps the whole map in memory behind an RWMutex and hands it to a
// Store after every mutation. JSONStore rewrites a single JSON document
// atomically under a file lock; SQLiteStore rewrites one table inside a
// transaction; MemoryStore keeps nothing on disk.
//
// A store that cannot be read at startup is logged and treated as empty.
// Write failures are returned as services.ErrCacheIO and never lose the
// in-memory entry.
package transcriptcache
