package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// asset text (material and object names, texture paths) is utf-8 unless configured
const EncodingUTF8 = "UTF-8"

var extraEncodings = map[string]encoding.Encoding{
	"GBK":     simplifiedchinese.GBK,
	"GB18030": simplifiedchinese.GB18030,
}

// LookupEncoding returns nil encoding for utf-8
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, EncodingUTF8) || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	for key, enc := range extraEncodings {
		if strings.EqualFold(key, name) {
			return enc, nil
		}
	}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if strings.EqualFold(cm.String(), name) {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := []string{EncodingUTF8, "GBK", "GB18030"}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

// DecodeText converts text in enc to utf-8, nil enc returns data as is
func DecodeText(enc encoding.Encoding, data []byte) ([]byte, error) {
	if enc == nil {
		return data, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode text")
	}
	return out, nil
}
