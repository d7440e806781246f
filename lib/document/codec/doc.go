// Package codec provides the encodings a document store can use for its document
// blobs. It defines a common interface and two implementations.
//
// Key Components:
//
//   - IDocCodec: Core interface with Encode, Decode and Name.
//
//   - jsonCodecImpl: The JSON form of the document package. Human readable, identical
//     to the backup format, and the default.
//
//   - bsonCodecImpl: BSON through the MongoDB driver's bson package. Smaller for
//     documents with many numbers and dates, but dates are truncated to milliseconds.
//
// The codec of a database must not change once documents were written, the stored
// blobs carry no format marker.
//
// Thread Safety:
//
//	All codecs are stateless and safe for concurrent use.
package codec
