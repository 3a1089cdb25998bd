// Package epoch supplies generation identities to the metadata cache.
//
// A generation identity names the current version of the metadata schema.
// Descriptors are cached under the identity that was current when they were
// built; when the identity changes, later lookups populate a fresh partition
// and old partitions age out.
//
// Three sources are provided:
//
//   - Fixed: a constant identity. A cache fed by a Fixed source never evicts.
//   - Manual: an in-process identity advanced by Bump.
//   - RedisSource: an identity shared by every process pointed at the same
//     Redis key. Bump stores a fresh ULID, and a lost key is re-seeded
//     with one, so identities are never reused.
package epoch
