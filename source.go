package pylldb

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// sourceUnavailable is the sentinel the source reader and its callers
// (py-bt, py-list) emit on any IO failure.
const sourceUnavailable = "<source code is not available>"

// codingDeclaration matches the PEP-263 magic comment, searched for on the
// first two lines of a source file.
var codingDeclaration = regexp.MustCompile(`#.*coding[:=][ \t]*([-_.a-zA-Z0-9]+)`)

// pythonCodecAliases maps Python codec names that ianaindex doesn't resolve
// on its own to the IANA name it does. Python accepts many more spellings
// than the IANA registry does (CPython's own encodings/aliases.py is the
// canonical list); this covers the common ones rather than reproducing that
// whole table.
var pythonCodecAliases = map[string]string{
	"cp1251":    "windows-1251",
	"cp1252":    "windows-1252",
	"cp1250":    "windows-1250",
	"cp1253":    "windows-1253",
	"cp1254":    "windows-1254",
	"cp1255":    "windows-1255",
	"cp1256":    "windows-1256",
	"cp1257":    "windows-1257",
	"cp1258":    "windows-1258",
	"cp437":     "ibm437",
	"cp850":     "ibm850",
	"cp852":     "ibm852",
	"cp866":     "ibm866",
	"latin-1":   "iso-8859-1",
	"latin1":    "iso-8859-1",
	"latin_1":   "iso-8859-1",
	"l1":        "iso-8859-1",
	"8859":      "iso-8859-1",
	"iso8859-1": "iso-8859-1",
	"iso-8859":  "iso-8859-1",
	"utf8":      "utf-8",
	"u8":        "utf-8",
	"utf":       "utf-8",
	"utf16":     "utf-16",
	"u16":       "utf-16",
	"utf32":     "utf-32",
	"u32":       "utf-32",
	"ascii":     "us-ascii",
	"us":        "us-ascii",
	"646":       "us-ascii",
	"shiftjis":  "shift-jis",
	"sjis":      "shift-jis",
	"eucjp":     "euc-jp",
	"big5-tw":   "big5",
	"csbig5":    "big5",
	"euccn":     "gb2312",
	"gb2312-80": "gb2312",
}

// readLine returns the nth 1-indexed line of path, decoded under the codec
// named by a PEP-263 encoding declaration if present, else UTF-8. Any IO
// failure yields sourceUnavailable rather than an error.
func readLine(path string, n int) string {
	if n < 1 {
		return sourceUnavailable
	}

	enc := detectEncoding(path)

	f, err := os.Open(path)
	if err != nil {
		onceSourceReadFailed.Printf("pylldb: source file unavailable: %v", err)
		return sourceUnavailable
	}
	defer f.Close()

	var scanner *bufio.Scanner
	if enc == nil {
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(transform.NewReader(f, enc.NewDecoder()))
	}

	line := 0
	for scanner.Scan() {
		line++
		if line == n {
			return scanner.Text()
		}
	}
	return sourceUnavailable
}

// detectEncoding reads the first two lines of path as UTF-8 looking for a
// PEP-263 coding declaration and resolves the named codec. A missing
// declaration, an unknown codec name, or a read failure all resolve to nil,
// meaning "decode as UTF-8".
func detectEncoding(path string) encoding.Encoding {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < 2 && scanner.Scan(); i++ {
		m := codingDeclaration.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		if alias, ok := pythonCodecAliases[name]; ok {
			name = alias
		}
		if enc, err := ianaindex.MIME.Encoding(name); err == nil && enc != nil {
			return enc
		}
		if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
			return enc
		}
	}
	return nil
}
