package spaces

import (
	"strings"

	"ai-assistant-client/pkg/api"
)

type Resource string

const (
	ResourceSpace            Resource = "space"
	ResourceAssistant        Resource = "assistant"
	ResourceDefaultAssistant Resource = "default_assistant"
	ResourceApp              Resource = "app"
	ResourceService          Resource = "service"
	ResourceCollection       Resource = "collection"
	ResourceWebsite          Resource = "website"
	ResourceMember           Resource = "member"
)

// internalServicePrefix marks services the platform creates for itself.
const internalServicePrefix = "_intric"

// View is the current space flattened for display.
type View struct {
	api.Space
	RouteID        string
	MemberList     []api.SpaceMember
	AssistantList  []api.AssistantSparse
	AppList        []api.Named
	ServiceList    []api.Named
	WebsiteList    []api.Named
	CollectionList []api.Named
}

func newView(s api.Space) View {
	routeID := s.ID
	if s.Personal {
		routeID = "personal"
	}

	services := make([]api.Named, 0, len(s.Applications.Services.Items))
	for _, svc := range s.Applications.Services.Items {
		if !strings.HasPrefix(svc.Name, internalServicePrefix) {
			services = append(services, svc)
		}
	}

	return View{
		Space:          s,
		RouteID:        routeID,
		MemberList:     s.Members.Items,
		AssistantList:  s.Applications.Assistants.Items,
		AppList:        s.Applications.Apps.Items,
		ServiceList:    services,
		WebsiteList:    s.Knowledge.Websites.Items,
		CollectionList: s.Knowledge.Groups.Items,
	}
}

// HasPermission reports whether the user may perform action on resources of
// the given kind in this space.
func (v View) HasPermission(action api.Permission, resource Resource) bool {
	var permissions []api.Permission
	switch resource {
	case ResourceSpace:
		permissions = v.Permissions
	case ResourceAssistant:
		permissions = v.Applications.Assistants.Permissions
	case ResourceDefaultAssistant:
		permissions = v.DefaultAssistant.Permissions
	case ResourceApp:
		permissions = v.Applications.Apps.Permissions
	case ResourceService:
		permissions = v.Applications.Services.Permissions
	case ResourceCollection:
		permissions = v.Knowledge.Groups.Permissions
	case ResourceWebsite:
		permissions = v.Knowledge.Websites.Permissions
	case ResourceMember:
		permissions = v.Members.Permissions
	default:
		return false
	}
	return api.HasPermission(permissions, action)
}
