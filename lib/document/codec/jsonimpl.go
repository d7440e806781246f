package codec

import (
	"encoding/json"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// NewJSONCodec creates a codec writing the JSON form of the document package
// (dates as {"$date": ...}). This is the default and the format backups use.
func NewJSONCodec() IDocCodec {
	return &jsonCodecImpl{}
}

type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IDocCodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Name() string {
	return "json"
}

func (j jsonCodecImpl) Encode(doc document.Document) ([]byte, error) {
	return json.Marshal(doc)
}

func (j jsonCodecImpl) Decode(b []byte) (document.Document, error) {
	var doc document.Document
	err := json.Unmarshal(b, &doc)
	return doc, err
}
