package manifest

import "fmt"

// MissingInputDirectoryError is returned when the directory holding the
// bundler output does not exist.
type MissingInputDirectoryError struct {
	Path string
}

func (e *MissingInputDirectoryError) Error() string {
	return fmt.Sprintf(`The input directory %q does not exist.
    Run the bundler to produce it before publishing.
    You can use '--input-dir' to specify a different input directory.`, e.Path)
}

// MalformedMetadataError is returned when the metadata file does not have the
// shape produced by the bundler.
type MalformedMetadataError struct {
	Path string
	Err  error
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("manifest: malformed metadata in %q: %v", e.Path, e.Err)
}

func (e *MalformedMetadataError) Unwrap() error {
	return e.Err
}
