package ports

import "jdbuilder/domain/jd"

// Exporter renders a document to a downloadable byte stream. It is a pure
// function of the document; implementations decide the format.
type Exporter interface {
	Render(doc *jd.Document) (data []byte, contentType string, err error)
}
