// Package species detects the taxon of a rank-list bundle from the
// FASTA files shipped beside the rank files.
//
// UniProt FASTA headers carry the organism as "OX=<taxon id>". A
// bundle can hold several FASTA files; the taxon is the one most of
// the headers agree on.
package species

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/fgcz/string-gsea/pkg/utils/archive"
	"github.com/fgcz/string-gsea/pkg/utils/maps"
)

var ErrNoSpecies = errors.New("no OX= field in any FASTA member")

var oxField = regexp.MustCompile(`OX=(\d+)`)

// OxFields collects the OX= value of each header line in a FASTA
// stream, in reading order. Headers without OX= contribute nothing.
func OxFields(r io.Reader) ([]string, error) {
	fields := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ">") {
			continue
		}
		if m := oxField.FindStringSubmatch(line); m != nil {
			fields = append(fields, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

// FromZip takes a majority vote over the OX= fields of all .fas and
// .fasta members of the zip archive at zipPath.
//
// A tie keeps the taxon read first. Without any OX= field the vote is
// void: ErrNoSpecies.
func FromZip(zipPath string) (int, error) {
	votes := maps.NewOrderedMap[string, int]()

	err := archive.ZipWalk(zipPath, func(member *zip.File) error {
		if member.FileInfo().IsDir() {
			return nil
		}
		if !strings.HasSuffix(member.Name, ".fas") &&
			!strings.HasSuffix(member.Name, ".fasta") {
			return nil
		}

		fields, err := readFastaMember(member)
		if err != nil {
			return fmt.Errorf("member %s: %w", member.Name, err)
		}
		for _, field := range fields {
			n, _ := votes.Get(field)
			votes.Set(field, n+1)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", zipPath, err)
	}

	winner, most := "", 0
	for field, n := range votes.Iter() {
		if most < n {
			winner, most = field, n
		}
	}
	if winner == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoSpecies, zipPath)
	}

	taxon, err := strconv.Atoi(winner)
	if err != nil {
		return 0, fmt.Errorf("taxon id %s: %w", winner, err)
	}
	return taxon, nil
}

func readFastaMember(member *zip.File) ([]string, error) {
	f, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return OxFields(f)
}
