package gateway

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

var errNoCookie = errors.New("no BuyerCookie element")

// ExtractBuyerCookie returns the text of the first BuyerCookie element in a cXML document.
// The match ignores namespaces. A missing or empty element, or a body that is not XML, yields false.
//
// Declared encodings other than UTF-8 are decoded. Bytes that are not valid in the
// document's encoding are replaced before a second attempt so a stray byte elsewhere in
// the body does not hide the element.
func ExtractBuyerCookie(body string) (string, bool) {
	value, err := scanBuyerCookie(body)
	if err == nil {
		return value, value != ""
	}
	if errors.Is(err, errNoCookie) || utf8.ValidString(body) {
		return "", false
	}

	value, err = scanBuyerCookie(strings.ToValidUTF8(body, "\uFFFD"))
	if err != nil {
		return "", false
	}
	return value, value != ""
}

func scanBuyerCookie(body string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", errNoCookie
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "BuyerCookie" {
			continue
		}

		var value string
		if err := dec.DecodeElement(&value, &start); err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}
}

// charsetReader decodes the declared encoding. Unknown labels are read as-is.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return input, nil
	}
	return r, nil
}
