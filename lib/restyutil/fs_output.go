package restyutil

import (
	"os"
	"path/filepath"

	"lendingops/internal/telemetry"
)

const report_fs_output_write = "fs_output.write"

// FilesystemOutput writes one file per HTTP exchange into a directory.
type FilesystemOutput struct {
	directory string
	tel       telemetry.API
}

// NewFilesystemOutput clears `dir` and recreates it.
func NewFilesystemOutput(dir string, tel telemetry.API) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, tel: tel}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		o.tel.ReportWarning(report_fs_output_write, "id", id, "err", err)
	}
}
