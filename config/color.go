package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/model_viewer/utils"
)

// Color is 0xRRGGBB
type Color uint32

// ParseColor accepts #rgb, #rrggbb, 0xrrggbb, bare rrggbb, decimal and css color names
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, errors.Errorf("empty color")
	}

	hex := ""
	switch {
	case strings.HasPrefix(s, "#"):
		hex = s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return 0, errors.Errorf("color %q: expected #rgb or #rrggbb", s)
		}
	case strings.HasPrefix(s, "0x"):
		hex = s[2:]
	case len(s) == 6 && isHex(s):
		hex = s
	}
	if hex != "" {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || v > 0xffffff {
			return 0, errors.Errorf("color %q: invalid hex value", s)
		}
		return Color(v), nil
	}

	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		if v > 0xffffff {
			return 0, errors.Errorf("color %q: out of range", s)
		}
		return Color(v), nil
	}

	if c, ok := colornames.Map[s]; ok {
		return Color(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)), nil
	}
	return 0, errors.Errorf("unknown color %q", s)
}

func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c))
}

func (c Color) Float() utils.ColorFloat {
	return utils.NewColorFloatHex(uint32(c))
}

func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*c = parsed
	return nil
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
