package lambdas

import (
	"os"
	"path/filepath"
	"strings"

	"stepfunction-cloner/cloneerr"
)

// ScanPackages lists the deployment packages in dir in directory listing
// order.
func ScanPackages(dir string) ([]PackageRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ReadFailed, err, "read package directory %s", dir)
	}

	var records []PackageRecord
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), PackageExt) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), PackageExt)
		if base == "" {
			continue
		}
		records = append(records, PackageRecord{
			BaseName: base,
			ZipPath:  filepath.Join(dir, entry.Name()),
		})
	}
	return records, nil
}
