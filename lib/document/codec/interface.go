package codec

import (
	"fmt"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// IDocCodec encodes documents into the blobs stored under
// {db}_collection_{name}_{id}. Index maps, id lists and metadata are always JSON.
type IDocCodec interface {
	// Name returns the identifier used in configuration ("json", "bson")
	Name() string
	// Encode serializes a document
	Encode(doc document.Document) ([]byte, error)
	// Decode deserializes a blob written by Encode
	Decode(b []byte) (document.Document, error)
}

// New returns the codec registered under name
func New(name string) (IDocCodec, error) {
	switch name {
	case "", "json":
		return NewJSONCodec(), nil
	case "bson":
		return NewBSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", name)
	}
}
