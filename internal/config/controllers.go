package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

var (
	confNameRe     = regexp.MustCompile(`^(UT\d+-L\d+)\.(\d+)\.name\s*=\s*(.+)$`)
	confAddressRe  = regexp.MustCompile(`^(UT\d+-L\d+)\.(\d+)\.address\s*=\s*(\d+\.\d+\.\d+\.\d+(?::\d+)?)$`)
	confTimezoneRe = regexp.MustCompile(`^(UT\d+-L\d+)\.(\d+)\.timezone\s*=\s*(.+)$`)
)

// LoadControllers reads the controller directory from path. Files ending in
// .yaml or .yml are read as YAML; anything else as a uhppoted.conf.
func LoadControllers(path string) ([]types.Controller, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open controllers file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseControllersYAML(f)
	default:
		return parseUhppotedConf(f)
	}
}

// parseUhppotedConf extracts controllers from uhppoted.conf lines of the form
//
//	UT0311-L04.405419896.name = Front Door
//	UT0311-L04.405419896.address = 192.168.1.100:60000
//	UT0311-L04.405419896.timezone = America/Chicago
//
// Address and timezone lines only apply to a controller whose name line has
// already been seen.
func parseUhppotedConf(r io.Reader) ([]types.Controller, error) {
	byID := map[uint32]*types.Controller{}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := confNameRe.FindStringSubmatch(line); m != nil {
			id, err := parseControllerID(m[2])
			if err != nil {
				continue
			}
			c, ok := byID[id]
			if !ok {
				c = &types.Controller{ID: id, Model: m[1]}
				byID[id] = c
			}
			c.Name = strings.TrimSpace(m[3])
			continue
		}
		if m := confAddressRe.FindStringSubmatch(line); m != nil {
			if c := lookupConf(byID, m[2]); c != nil {
				c.Address = m[3]
			}
			continue
		}
		if m := confTimezoneRe.FindStringSubmatch(line); m != nil {
			if c := lookupConf(byID, m[2]); c != nil {
				c.Timezone = strings.TrimSpace(m[3])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read uhppoted.conf: %w", err)
	}

	out := make([]types.Controller, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sortControllers(out)
	return out, nil
}

func lookupConf(byID map[uint32]*types.Controller, raw string) *types.Controller {
	id, err := parseControllerID(raw)
	if err != nil {
		return nil
	}
	return byID[id]
}

type controllersFile struct {
	Controllers []types.Controller `yaml:"controllers"`
}

func parseControllersYAML(r io.Reader) ([]types.Controller, error) {
	var doc controllersFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []types.Controller{}, nil
		}
		return nil, fmt.Errorf("decode controllers yaml: %w", err)
	}

	seen := make(map[uint32]struct{}, len(doc.Controllers))
	out := make([]types.Controller, 0, len(doc.Controllers))
	for i, c := range doc.Controllers {
		if c.ID == 0 {
			return nil, fmt.Errorf("controllers[%d]: id is required", i)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("controllers[%d]: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	sortControllers(out)
	return out, nil
}

func parseControllerID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func sortControllers(cs []types.Controller) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
