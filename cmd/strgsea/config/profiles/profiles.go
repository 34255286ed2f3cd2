package profiles

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fgcz/string-gsea/cmd/strgsea/config/open"
	"github.com/fgcz/string-gsea/pkg/stringdb"
	"github.com/hectane/go-acl"
	yaml "gopkg.in/yaml.v3"
)

var ErrProfileStoreNotFound = errors.New("profile store is not found")
var ErrCannotCreateConfig = errors.New("cannot create profile store")
var ErrCannotUpdateConfig = errors.New("cannot update profile store")

// Enrichment parameter defaults put into a new profile.
const (
	DefaultFDR           = 0.25
	DefaultRankDirection = -1
)

// ProfileStore is a map from profile name to GseaProfile.
type ProfileStore map[string]*GseaProfile

// GseaProfile is one named way to run enrichments: the connection part
// handed to the client, plus the enrichment parameters applied to every
// submission made through it.
type GseaProfile struct {
	stringdb.Profile `yaml:",inline"`

	// significance cutoff submitted with each rank list
	FDR float64 `yaml:"fdr"`

	// -1 ranks from the most negative value, 1 from the most positive
	RankDirection int `yaml:"rankDirection"`
}

// Verify GseaProfile
//
// # Return
//
// nil if it is valid. Otherwise, stringdb.ErrProfileInvalid error.
func (p *GseaProfile) Verify() error {
	if err := p.Profile.Verify(); err != nil {
		return err
	}
	if p.FDR <= 0 || 1 <= p.FDR {
		return fmt.Errorf("%w: fdr %v is out of (0, 1)", stringdb.ErrProfileInvalid, p.FDR)
	}
	if p.RankDirection != -1 && p.RankDirection != 1 {
		return fmt.Errorf(
			"%w: rank direction %d is neither -1 nor 1",
			stringdb.ErrProfileInvalid, p.RankDirection,
		)
	}
	return nil
}

// LoadProfileStore loads profile store from file.
func LoadProfileStore(filepath string) (ProfileStore, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrProfileStoreNotFound, filepath)
		}
		return nil, err
	}
	return Unmarshall(buf)
}

// Unmarshall profile store from yaml in byte array.
func Unmarshall(buf []byte) (ProfileStore, error) {
	ret := map[string]*GseaProfile{}
	err := yaml.Unmarshal(buf, &ret)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Save profile store to file.
func (ps *ProfileStore) Save(path string) error {
	saving := false

	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}

	bkpath := path + ".backup"
	bk, err := open.NewSafeFile(bkpath)
	if err != nil {
		return err
	}
	defer func() {
		if !saving {
			os.Remove(bkpath)
		}
	}()
	defer bk.Close()

	f, err := os.OpenFile(path, os.O_RDWR, os.FileMode(0600))
	if err == nil {
		// In case of the existing file with loose permissions,
		// enforce permission to 0600.
		if err := acl.Chmod(path, os.FileMode(0600)); err != nil {
			return err
		}
	} else {
		if os.IsPermission(err) {
			return fmt.Errorf(
				"%w, because no permission to write file at %s",
				ErrCannotUpdateConfig, path,
			)
		} else if os.IsNotExist(err) {
			f_, err_ := open.NewSafeFile(path)
			if err_ != nil {
				return fmt.Errorf(
					"%w: cannot create a file at %s",
					ErrCannotCreateConfig, path,
				)
			}
			f = f_
		} else {
			return err
		}
	}
	defer f.Close()

	if err := bk.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := io.Copy(bk, f); err != nil {
		return err
	}

	saving = true
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	buf, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}
	_, err = f.Write(buf)

	if err == nil {
		saving = false
	}
	return err
}
