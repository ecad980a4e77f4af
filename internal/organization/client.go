package organization

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	pkgerrors "nvi/pkg/domain-errors"
)

// maxHierarchyDepth bounds the partOf walk so a cyclic registry response
// cannot loop forever.
const maxHierarchyDepth = 20

// Client resolves organizations against the customer registry HTTP API.
type Client struct {
	httpClient  *http.Client
	registryURL string
}

// NewClient builds a registry client. The http.Client controls timeouts; pass
// one configured by the caller rather than relying on defaults.
func NewClient(httpClient *http.Client, registryURL string) *Client {
	return &Client{httpClient: httpClient, registryURL: registryURL}
}

// ResolveTopLevelOrganization fetches the affiliation's organization record
// and follows partOf links until it reaches a node with no parent.
func (c *Client) ResolveTopLevelOrganization(ctx context.Context, affiliationID string) (Organization, error) {
	current, err := c.fetchOrganization(ctx, affiliationID)
	if err != nil {
		return Organization{}, err
	}
	for depth := 0; !current.TopLevel(); depth++ {
		if depth >= maxHierarchyDepth {
			return Organization{}, pkgerrors.Newf(pkgerrors.CodeDependency,
				"organization hierarchy for %s exceeds depth %d", affiliationID, maxHierarchyDepth)
		}
		current, err = c.fetchOrganization(ctx, current.PartOf[0])
		if err != nil {
			return Organization{}, err
		}
	}
	return current, nil
}

// IsParticipatingInstitution asks the customer registry whether the top-level
// organization is enrolled in the scheme. A 404 is a definitive "no".
func (c *Client) IsParticipatingInstitution(ctx context.Context, orgID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/customer/institution?orgId=%s", c.registryURL, url.QueryEscape(orgID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, "build customer request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, "query customer registry", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			NviInstitution bool `json:"nviInstitution"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, "decode customer response", err)
		}
		return body.NviInstitution, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, pkgerrors.Newf(pkgerrors.CodeDependency,
			"customer registry returned status %d for %s", resp.StatusCode, orgID)
	}
}

func (c *Client) fetchOrganization(ctx context.Context, orgID string) (Organization, error) {
	endpoint := fmt.Sprintf("%s/organization/%s", c.registryURL, url.PathEscape(orgID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Organization{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "build organization request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Organization{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "fetch organization", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Organization{}, pkgerrors.Newf(pkgerrors.CodeDependency,
			"organization registry returned status %d for %s", resp.StatusCode, orgID)
	}
	var org Organization
	if err := json.NewDecoder(resp.Body).Decode(&org); err != nil {
		return Organization{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "decode organization", err)
	}
	if org.ID == "" {
		org.ID = orgID
	}
	return org, nil
}
