// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityOptional                      // Token used when present
	SecurityAccess                        // Access token required
)

// RouteSecurityConfig maps HTTP route names to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"Healthz": SecurityPublic,

	// Campaign browsing - Public
	"ListPublishedCampaigns": SecurityPublic,

	// Campaign detail - drafts are only visible to club managers
	"GetCampaign": SecurityOptional,

	// Campaign management - Access Protected
	"CreateCampaign":   SecurityAccess,
	"ListClubCampaign": SecurityAccess,
	"UpdateCampaign":   SecurityAccess,
	"DeleteCampaign":   SecurityAccess,
	"PublishCampaign":  SecurityAccess,
	"PauseCampaign":    SecurityAccess,
	"ResumeCampaign":   SecurityAccess,
	"CompleteCampaign": SecurityAccess,

	// Applications - Access Protected
	"SubmitApplication":   SecurityAccess,
	"ListApplications":    SecurityAccess,
	"GetApplication":      SecurityAccess,
	"UpdateApplication":   SecurityAccess,
	"WithdrawApplication": SecurityAccess,
	"ApproveApplication":  SecurityAccess,
	"RejectApplication":   SecurityAccess,
	"ListMyApplications":  SecurityAccess,
	"RemoveMember":        SecurityAccess,

	// Members - Access Protected
	"GetMember": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAccess
}
