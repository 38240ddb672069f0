package serverdetails

import (
	"fmt"
	"net"
	"strings"
)

const displayHostLocalhost = "localhost"

var localBindAddresses = map[string]struct{}{
	"":          {},
	"0.0.0.0":   {},
	"127.0.0.1": {},
	"::":        {},
	"::1":       {},
}

// ServingAddressFormatter renders bind addresses the way users type them into a browser.
type ServingAddressFormatter struct{}

// NewServingAddressFormatter constructs a ServingAddressFormatter.
func NewServingAddressFormatter() ServingAddressFormatter {
	return ServingAddressFormatter{}
}

// FormatHostAndPortForLogging maps wildcard and loopback bind addresses to localhost.
func (formatter ServingAddressFormatter) FormatHostAndPortForLogging(bindAddress string, port string) string {
	host := strings.TrimSpace(bindAddress)
	if _, isLocal := localBindAddresses[host]; isLocal {
		host = displayHostLocalhost
	}
	return net.JoinHostPort(host, strings.TrimSpace(port))
}

// FormatURLForLogging returns scheme://host:port for the bind address.
func (formatter ServingAddressFormatter) FormatURLForLogging(scheme string, bindAddress string, port string) string {
	normalizedScheme := strings.TrimSuffix(strings.TrimSpace(scheme), "://")
	return fmt.Sprintf("%s://%s", normalizedScheme, formatter.FormatHostAndPortForLogging(bindAddress, port))
}
