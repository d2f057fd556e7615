// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication, the share token is the capability
	SecurityAccess                      // Staff access token required
)

// Route names as registered on the HTTP router.
const (
	RouteLiveness        = "health.live"
	RouteReadiness       = "health.ready"
	RouteShareIssue      = "share.issue"
	RouteShareList       = "share.list"
	RouteShareRevoke     = "share.revoke"
	RouteTimeline        = "quote.timeline"
	RouteContractPDF     = "contract.pdf.store"
	RoutePublicQuote     = "public.quote.view"
	RoutePublicSign      = "public.quote.sign"
	RoutePublicBundle    = "public.contract.bundle"
	RoutePublicPDFUpload = "public.contract.pdf.store"
	RouteFileDownload    = "files.download"
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	RouteLiveness:  SecurityPublic,
	RouteReadiness: SecurityPublic,

	// Public signing flow - gated by the share token in the path
	RoutePublicQuote:     SecurityPublic,
	RoutePublicSign:      SecurityPublic,
	RoutePublicBundle:    SecurityPublic,
	RoutePublicPDFUpload: SecurityPublic,

	// Mock document storage downloads - Public
	RouteFileDownload: SecurityPublic,

	// Staff - Access Protected
	RouteShareIssue:  SecurityAccess,
	RouteShareList:   SecurityAccess,
	RouteShareRevoke: SecurityAccess,
	RouteTimeline:    SecurityAccess,
	RouteContractPDF: SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAccess
}
