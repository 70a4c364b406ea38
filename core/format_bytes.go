package core

import "fmt"

// Binary byte units.
const (
	BytesPerKB int64 = 1 << 10
	BytesPerMB int64 = 1 << 20
	BytesPerGB int64 = 1 << 30
	BytesPerTB int64 = 1 << 40
)

// FormatBytes renders n with two decimals in the largest fitting unit,
// e.g. "1.50 KB". Negative values render as "0 B".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	units := []struct {
		size int64
		name string
	}{
		{BytesPerTB, "TB"},
		{BytesPerGB, "GB"},
		{BytesPerMB, "MB"},
		{BytesPerKB, "KB"},
	}
	for _, u := range units {
		if n >= u.size {
			return fmt.Sprintf("%.2f %s", float64(n)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%d B", n)
}
