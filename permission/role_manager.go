package permission

import (
	"errors"
	"fmt"
	"sync"
)

// RoleManager maps role names to permission masks over one Registry.
//
// Roles are registered during initialization; after Freeze the manager is read-only.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask
	frozen bool
}

// NewRoleManager returns an empty RoleManager.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask),
	}
}

// RegisterRole records the permissions granted by roleName. Every permission must already
// be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return fmt.Errorf("role already registered: %s", roleName)
	}

	mask := NewMask(rm.registry.MaxBits())
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return errors.New("permission not registered: " + perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// HasRole reports whether roleName is registered.
func (rm *RoleManager) HasRole(roleName string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[roleName]
	return ok
}

// Mask returns a copy of the mask of roleName.
func (rm *RoleManager) Mask(roleName string) (Mask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	if !ok {
		return nil, false
	}
	return mask.Clone(), true
}

// Effective returns the union of the masks of roles. Unknown roles grant nothing.
func (rm *RoleManager) Effective(roles []string) Mask {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := NewMask(rm.registry.MaxBits())
	for _, role := range roles {
		if mask, ok := rm.roles[role]; ok {
			out.Or(mask)
		}
	}
	return out
}

// Permissions returns the names of the permissions granted by roles.
func (rm *RoleManager) Permissions(roles []string) []string {
	return rm.registry.Names(rm.Effective(roles))
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
