package adapt

import (
	"strings"
	"sync"
	"time"

	"newscrawl/internal/models"
)

// PolicyStore is the shared per-domain crawl memory. It is created once
// per run, injected into the controller, read and written concurrently
// by every worker, and discarded at run end. The enhanced-rendering
// flag is monotone: it flips to true once and never resets.
type PolicyStore struct {
	mu       sync.RWMutex
	policies map[string]*models.DomainPolicy
}

// NewPolicyStore creates an empty store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{policies: make(map[string]*models.DomainPolicy)}
}

// RequiresEnhancedRendering reports the current flag for a domain.
// Unknown domains default to false.
func (ps *PolicyStore) RequiresEnhancedRendering(domain string) bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	policy, ok := ps.policies[domain]
	return ok && policy.RequiresEnhancedRendering
}

// MarkRequiresEnhancedRendering durably flips the domain's flag for the
// remainder of the run. The flip is idempotent, so a lost race between
// workers is harmless.
func (ps *PolicyStore) MarkRequiresEnhancedRendering(domain string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	policy, ok := ps.policies[domain]
	if !ok {
		policy = &models.DomainPolicy{Domain: domain}
		ps.policies[domain] = policy
	}
	policy.RequiresEnhancedRendering = true
	policy.LastUpdatedAt = time.Now()
}

// Snapshot returns a copy of all policies, for run-end reporting.
func (ps *PolicyStore) Snapshot() []models.DomainPolicy {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]models.DomainPolicy, 0, len(ps.policies))
	for _, policy := range ps.policies {
		out = append(out, *policy)
	}
	return out
}

// RegistrableDomain reduces a hostname to its second-level form, so
// subdomains of one site share a policy entry.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
