package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseFlags turns a ["--key=value", "--flag", ...] slice into a map,
// mirroring the teacher's light touch around argument parsing (no
// third-party flag library pulled in just for this harness's handful of
// long options).
func parseFlags(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			continue
		}
		a = strings.TrimPrefix(a, "--")
		if eq := strings.IndexByte(a, '='); eq >= 0 {
			out[a[:eq]] = a[eq+1:]
		} else {
			out[a] = "true"
		}
	}
	return out
}

func requireFlag(flags map[string]string, name string) (string, error) {
	v, ok := flags[name]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required --%s", name)
	}
	return v, nil
}

func flagOr(flags map[string]string, name, def string) string {
	if v, ok := flags[name]; ok && v != "" {
		return v
	}
	return def
}

func flagUint32Or(flags map[string]string, name string, def uint32) (uint32, error) {
	v, ok := flags[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("--%s must be a non-negative integer: %w", name, err)
	}
	return uint32(n), nil
}
