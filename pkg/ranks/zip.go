package ranks

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/fgcz/string-gsea/pkg/utils/archive"
)

// FromZipGroup is the group under which FromZip files its lists.
const FromZipGroup = "from_rnk"

// FromZip reads every *.rnk member of the zip archive at zipPath into
// a Set, in archive order.
//
// Each member becomes one rank list keyed (FromZipGroup, file stem).
// Members whose stems collide are rejected via ErrDuplicateKey.
func FromZip(zipPath string) (*Set, error) {
	set := NewSet()

	err := archive.ZipWalk(zipPath, func(member *zip.File) error {
		if member.FileInfo().IsDir() {
			return nil
		}
		if !strings.HasSuffix(member.Name, ".rnk") {
			return nil
		}

		list, err := readRnkMember(member)
		if err != nil {
			return fmt.Errorf("member %s: %w", member.Name, err)
		}

		stem := strings.TrimSuffix(path.Base(member.Name), ".rnk")
		if err := set.Add(Key{Group: FromZipGroup, Name: stem}, list); err != nil {
			return fmt.Errorf("member %s: %w", member.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", zipPath, err)
	}

	return set, nil
}

func readRnkMember(member *zip.File) (List, error) {
	f, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return ParseTSV(string(content))
}
