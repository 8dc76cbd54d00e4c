package core

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// dcimPath matches the media-root-relative part of a local path.
	dcimPath = regexp.MustCompile(`/DCIM.*`)

	// folderPath matches the DCIM folder part of a file URL, e.g. /100RICOH/R0010001.JPG.
	folderPath = regexp.MustCompile(`/\d{3}[A-Z]+/.*`)
)

// MediaPath trims a local path to the part starting at /DCIM. Paths outside DCIM are returned as is.
func MediaPath(p string) string {
	if m := dcimPath.FindString(filepath.ToSlash(p)); m != "" {
		return m
	}
	return p
}

// LocalPath maps a camera file URL to a file under dcimDir. ok is false when
// the URL does not name a DCIM folder or escapes dcimDir.
func LocalPath(dcimDir, fileURL string) (string, bool) {
	m := folderPath.FindString(fileURL)
	if m == "" {
		return "", false
	}
	p := filepath.Join(dcimDir, filepath.FromSlash(m))
	rel, err := filepath.Rel(dcimDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}
