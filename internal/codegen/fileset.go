package codegen

// Conventional file names produced by the generator.
const (
	EntryPage   = "index.html"
	Description = "README.md"
)

// File is one generated file.
type File struct {
	Path    string
	Content []byte
}

// FileSet is an ordered mapping from relative path to content. Order is
// insertion order; replacing a path keeps its original position.
type FileSet []File

// Put adds or replaces the file at path.
func (fs *FileSet) Put(path string, content []byte) {
	for i := range *fs {
		if (*fs)[i].Path == path {
			(*fs)[i].Content = content
			return
		}
	}
	*fs = append(*fs, File{Path: path, Content: content})
}

// Get returns the content stored at path.
func (fs FileSet) Get(path string) ([]byte, bool) {
	for _, f := range fs {
		if f.Path == path {
			return f.Content, true
		}
	}
	return nil, false
}

// Paths lists the paths in order.
func (fs FileSet) Paths() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Path
	}
	return out
}

// Size is the total content length in bytes.
func (fs FileSet) Size() int {
	n := 0
	for _, f := range fs {
		n += len(f.Content)
	}
	return n
}
