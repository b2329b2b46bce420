package stepwise

import "strings"

// SessionKey builds the conventional key for a wizard over an entity, e.g.
// SessionKey("role-edit", "42") == "role-edit:42". An empty entity id means
// the wizard creates a new entity: SessionKey("role-create", "") == "role-create:new".
func SessionKey(flow, entityID string) string {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		entityID = "new"
	}
	return flow + ":" + entityID
}
