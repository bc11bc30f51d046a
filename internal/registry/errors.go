package registry

import "errors"

// ManifestParseError reports an unreadable or malformed model.json. It is fatal:
// discovery stops and the error is returned to the caller.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return "invalid model manifest " + e.Path + ": " + e.Err.Error()
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// CatalogParseError reports a malformed registry catalog. LoadCatalog recovers from it
// by returning an empty catalog.
type CatalogParseError struct {
	Path string
	Err  error
}

func (e *CatalogParseError) Error() string {
	p := e.Path
	if p == "" {
		p = "<data>"
	}
	return "invalid registry catalog " + p + ": " + e.Err.Error()
}

func (e *CatalogParseError) Unwrap() error { return e.Err }

// NotFoundError signals that a named model is absent from the catalog.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string { return "model '" + e.Name + "' not found in registry" }

// IsManifestParse reports whether err wraps a ManifestParseError.
func IsManifestParse(err error) bool {
	var e *ManifestParseError
	return errors.As(err, &e)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
