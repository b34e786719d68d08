package pump

import (
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxPending bounds how many undecodable trailing bytes are carried over to
// the next chunk.
const maxPending = 16

// Decoder turns byte chunks into text. Bytes of a character split across two
// chunks are held back until the rest arrives.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

// NewDecoder returns a Decoder for enc. A nil enc means UTF-8.
func NewDecoder(enc encoding.Encoding) *Decoder {
	if enc == nil {
		enc = unicode.UTF8
	}
	return &Decoder{t: enc.NewDecoder()}
}

// NewLocaleDecoder returns a Decoder for the charset named by the locale
// environment.
func NewLocaleDecoder() *Decoder {
	return NewDecoder(LocaleEncoding())
}

// LocaleEncoding resolves the charset of LC_ALL, LC_CTYPE or LANG, in that
// order. Unknown or missing charsets resolve to UTF-8.
func LocaleEncoding() encoding.Encoding {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return encodingForLocale(v)
		}
	}
	return unicode.UTF8
}

// encodingForLocale maps a locale such as "pl_PL.ISO-8859-2@euro" to its
// encoding.
func encodingForLocale(locale string) encoding.Encoding {
	dot := strings.IndexByte(locale, '.')
	if dot < 0 {
		return unicode.UTF8
	}
	charset := locale[dot+1:]
	if at := strings.IndexByte(charset, '@'); at >= 0 {
		charset = charset[:at]
	}
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return unicode.UTF8
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return unicode.UTF8
	}
	return enc
}

// Decode converts chunk, prefixed by any bytes held back last time.
// Invalid input becomes U+FFFD; Decode never fails.
func (d *Decoder) Decode(chunk []byte) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 {
		return ""
	}

	var out strings.Builder
	dst := make([]byte, 2*len(src)+utf8Max)
	for len(src) > 0 {
		nDst, nSrc, err := d.t.Transform(dst, src, false)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		case transform.ErrShortSrc:
			if len(src) > maxPending {
				// Not a split character; emit what we have as replacement.
				out.WriteString("�")
				src = src[1:]
				d.t.Reset()
				continue
			}
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			out.WriteString("�")
			src = src[1:]
			d.t.Reset()
		}
	}
	return out.String()
}

// Flush returns any held back bytes as text and resets the decoder.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	src := d.pending
	d.pending = nil
	s, _, err := transform.String(d.t, string(src))
	d.t.Reset()
	if err != nil {
		return strings.Repeat("�", len(src))
	}
	return s
}

const utf8Max = 4
