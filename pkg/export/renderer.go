package export

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

var (
	_ Renderer = (*CSVExporter)(nil)
	_ Renderer = (*PDFExporter)(nil)
	_ Renderer = (*XLSXExporter)(nil)
)
