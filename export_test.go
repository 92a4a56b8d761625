package realpdf

// Fixtures shared with the external test package.
var (
	FakePDFHTML = fakePDFHTML
	FontDataURL = fontDataURL
)
