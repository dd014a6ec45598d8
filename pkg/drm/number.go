package drm

import (
	"strconv"
	"strings"
)

// Numbers typed by the user are decimal unless written with a 0x prefix.
// A leading zero does not mean octal.
func splitBase(s string) (string, int) {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return sign + s[2:], 16
	}
	return sign + s, 10
}

func ParseUint(s string, bitSize int) (uint64, error) {
	digits, base := splitBase(s)
	if strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
		return 0, &strconv.NumError{Func: "ParseUint", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.ParseUint(digits, base, bitSize)
}

func ParseInt(s string, bitSize int) (int64, error) {
	digits, base := splitBase(s)
	return strconv.ParseInt(digits, base, bitSize)
}
