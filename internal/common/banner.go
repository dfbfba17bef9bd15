package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner prints the startup banner. The second line carries the
// full build string rather than the bare tag so deployed binaries are
// identifiable from the console alone.
func PrintBanner() {
	banner.PrintSimple("Colligo", GetFullVersion())
}
