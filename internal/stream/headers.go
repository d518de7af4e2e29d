package stream

import "strconv"

func parseContentLength(headers map[string]string) (int64, bool) {
	for _, key := range []string{"content-length", "Content-Length"} {
		if v, ok := headers[key]; ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
