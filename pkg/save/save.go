package save

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/orgsync/pkg/constants"
	"github.com/agentstation/orgsync/pkg/errors"
)

// Write persists data according to opts and returns the path written, or
// "" when the data went to a writer. Files are replaced atomically.
func Write(data []byte, opts ...Option) (string, error) {
	o := Defaults().Apply(opts...)
	content := withHeader(o.header, data)

	if o.writer != nil {
		if _, err := o.writer.Write(content); err != nil {
			return "", errors.WrapIO("write", "output", err)
		}
		return "", nil
	}
	if o.path == "" {
		return "", &errors.ConfigError{Component: "save", Message: "no output path or writer"}
	}

	dir := filepath.Dir(o.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(o.path)+".*")
	if err != nil {
		return "", errors.WrapIO("create", o.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", errors.WrapIO("write", o.path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.WrapIO("close", o.path, err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return "", errors.WrapIO("chmod", o.path, err)
	}
	if err := os.Rename(tmp.Name(), o.path); err != nil {
		return "", errors.WrapIO("rename", o.path, err)
	}
	return o.path, nil
}

func withHeader(header string, data []byte) []byte {
	if header == "" {
		return data
	}
	var buf bytes.Buffer
	for line := range strings.SplitSeq(strings.TrimRight(header, "\n"), "\n") {
		if line == "" {
			buf.WriteString("#\n")
			continue
		}
		buf.WriteString("# " + line + "\n")
	}
	buf.WriteString("\n")
	buf.Write(data)
	return buf.Bytes()
}
