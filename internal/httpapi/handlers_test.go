package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"veridoc.org/internal/cert"
	"veridoc.org/internal/identity"
	"veridoc.org/internal/org"
	"veridoc.org/internal/verify"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("VERIDOC_AUTH_SECRET", "test-secret")
	identity.ResetSecretForTests()

	users := identity.NewInMemoryUsers()
	orgs := org.NewDirectory(org.NewInMemory())
	certs := cert.NewInMemory()
	certSvc := cert.NewService(certs, nil)
	verifier := verify.NewService(certs, verify.NewInMemoryLog(), orgs,
		verify.WithFirstVerification(certSvc.MarkVerified))

	api := New(ReadyProbe{}, "test", Services{
		Resolver: identity.NewResolver(users, []string{"root@example.com"}),
		Inviter:  identity.NewInviter(users, orgs),
		Admin:    identity.NewAdmin(users),
		Users:    users,
		Certs:    certSvc,
		Verifier: verifier,
		Orgs:     orgs,
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u := path
	if params != nil {
		u += "?" + params.Encode()
	}
	return c.do(http.MethodGet, u, nil, headers)
}

func (c *apiClient) login(providerID, email string) loginResponse {
	c.t.Helper()
	resp := c.post("/v1/auth/login", loginRequest{ProviderID: providerID, Email: email}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: unexpected status %d", email, resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("healthz body: %v", body)
	}

	resp = c.get("/v1/info", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status: %d", resp.StatusCode)
	}
	info := decode[map[string]any](t, resp)
	if info["version"] != "test" {
		t.Fatalf("info body: %v", info)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/certificates", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", resp.StatusCode)
	}

	resp = c.get("/v1/certificates", nil, authHeaders("not-a-token"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d", resp.StatusCode)
	}
}

func TestCertificateIssueAndVerifyFlow(t *testing.T) {
	c := newTestAPI(t)

	root := c.login("uid-root", "root@example.com")
	if root.User.Role != identity.RoleSuperAdmin {
		t.Fatalf("allowlisted login role: %s", root.User.Role)
	}

	// Superadmin creates the organization.
	resp := c.post("/v1/organizations", createOrgRequest{Name: "Universitas Indonesia"}, authHeaders(root.Token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create org status: %d", resp.StatusCode)
	}
	created := decode[org.Organization](t, resp)
	if created.Slug != "universitas-indonesia" {
		t.Fatalf("org slug: %q", created.Slug)
	}

	// Superadmin invites an admin into it.
	resp = c.post("/v1/invitations", inviteRequest{
		Email:          "rektor@kampus.edu",
		Role:           "admin",
		OrganizationID: created.ID,
	}, authHeaders(root.Token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("invite status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The invited admin logs in; the pending row merges into the account.
	admin := c.login("uid-rektor", "rektor@kampus.edu")
	if admin.User.Role != identity.RoleAdmin {
		t.Fatalf("merged role: %s", admin.User.Role)
	}
	if admin.User.OrganizationID != created.ID {
		t.Fatalf("merged org: %s", admin.User.OrganizationID)
	}

	// Admin issues a certificate.
	resp = c.post("/v1/certificates", issueRequest{
		Title:     "Sertifikat Kelulusan",
		Recipient: cert.RecipientInfo{Name: "Ayu Lestari", Email: "ayu@example.com"},
		Files:     cert.FileRefs{CertificateURL: "https://files.example.com/c.pdf"},
	}, authHeaders(admin.Token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue status: %d", resp.StatusCode)
	}
	issued := decode[issueResponse](t, resp)
	if issued.Certificate.OrganizationID != created.ID {
		t.Fatalf("issued org: %s", issued.Certificate.OrganizationID)
	}
	if issued.VerifyURL == "" {
		t.Fatalf("verify url missing")
	}

	// Anyone can verify without a token; each lookup counts.
	for i := 1; i <= 2; i++ {
		resp = c.get("/v1/verify/"+issued.Certificate.ID, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("verify #%d status: %d", i, resp.StatusCode)
		}
		result := decode[verify.Result](t, resp)
		if !result.Valid {
			t.Fatalf("verify #%d: not valid", i)
		}
		if result.Certificate.VerificationCount != int64(i) {
			t.Fatalf("verify #%d count: %d", i, result.Certificate.VerificationCount)
		}
		if result.Organization == nil || result.Organization.Name != "Universitas Indonesia" {
			t.Fatalf("verify #%d org block: %+v", i, result.Organization)
		}
	}

	// First verification moved the certificate out of pending.
	resp = c.get("/v1/certificates/"+issued.Certificate.ID, nil, authHeaders(admin.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get certificate status: %d", resp.StatusCode)
	}
	stored := decode[cert.Certificate](t, resp)
	if stored.Status != cert.StatusVerified {
		t.Fatalf("status after verification: %s", stored.Status)
	}

	// The QR landing path answers too.
	resp = c.get("/verify/"+issued.Certificate.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("well-known verify status: %d", resp.StatusCode)
	}
	landing := decode[verify.Result](t, resp)
	if !landing.Valid {
		t.Fatalf("well-known verify not valid")
	}
}

func TestVerifyUnknownIDIsStructuredMiss(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/verify/does-not-exist", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	result := decode[verify.Result](t, resp)
	if result.Valid {
		t.Fatalf("unknown id reported valid")
	}
}

func TestStudentCannotIssueOrInvite(t *testing.T) {
	c := newTestAPI(t)
	student := c.login("uid-student", "siswa@example.com")
	if student.User.Role != identity.RoleStudent {
		t.Fatalf("fresh login role: %s", student.User.Role)
	}

	resp := c.post("/v1/certificates", issueRequest{Title: "X"}, authHeaders(student.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student issue status: %d", resp.StatusCode)
	}

	resp = c.post("/v1/invitations", inviteRequest{Email: "a@b.com", Role: "student", OrganizationID: "x"}, authHeaders(student.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student invite status: %d", resp.StatusCode)
	}

	resp = c.post("/v1/organizations", createOrgRequest{Name: "Nope"}, authHeaders(student.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student create org status: %d", resp.StatusCode)
	}
}

func TestAdminCannotReadForeignOrgCertificate(t *testing.T) {
	c := newTestAPI(t)
	root := c.login("uid-root", "root@example.com")

	makeOrgAdmin := func(name, email, uid string) (string, loginResponse) {
		t.Helper()
		resp := c.post("/v1/organizations", createOrgRequest{Name: name}, authHeaders(root.Token))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create org %s: %d", name, resp.StatusCode)
		}
		o := decode[org.Organization](t, resp)
		resp = c.post("/v1/invitations", inviteRequest{Email: email, Role: "admin", OrganizationID: o.ID}, authHeaders(root.Token))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("invite %s: %d", email, resp.StatusCode)
		}
		resp.Body.Close()
		return o.ID, c.login(uid, email)
	}

	_, adminA := makeOrgAdmin("Kampus A", "admin-a@kampus.edu", "uid-a")
	_, adminB := makeOrgAdmin("Kampus B", "admin-b@kampus.edu", "uid-b")

	resp := c.post("/v1/certificates", issueRequest{
		Title:     "Rahasia",
		Recipient: cert.RecipientInfo{Name: "X", Email: "x@example.com"},
		Files:     cert.FileRefs{CertificateURL: "https://f/x.pdf"},
	}, authHeaders(adminA.Token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue status: %d", resp.StatusCode)
	}
	issued := decode[issueResponse](t, resp)

	resp = c.get("/v1/certificates/"+issued.Certificate.ID, nil, authHeaders(adminB.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-org read status: %d", resp.StatusCode)
	}
}

func TestUserManagementEndpoints(t *testing.T) {
	c := newTestAPI(t)
	root := c.login("uid-root", "root@example.com")
	student := c.login("uid-target", "target@example.com")

	// Students cannot reach the management surface.
	resp := c.do(http.MethodPatch, "/v1/users/uid-target/role",
		changeRoleRequest{Role: "admin"}, authHeaders(student.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student role change status: %d", resp.StatusCode)
	}

	// Superadmin promotes the student.
	resp = c.do(http.MethodPatch, "/v1/users/uid-target/role",
		changeRoleRequest{Role: "admin"}, authHeaders(root.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role change status: %d", resp.StatusCode)
	}
	updated := decode[identity.User](t, resp)
	if updated.Role != identity.RoleAdmin {
		t.Fatalf("role after change: %s", updated.Role)
	}

	// Superadmin targets stay immutable.
	resp = c.do(http.MethodPatch, "/v1/users/uid-root/role",
		changeRoleRequest{Role: "student"}, authHeaders(root.Token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("superadmin demotion status: %d", resp.StatusCode)
	}

	// Deactivation blocks the next login.
	resp = c.post("/v1/users/uid-target/deactivate", nil, authHeaders(root.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.post("/v1/auth/login", loginRequest{ProviderID: "uid-target", Email: "target@example.com"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("deactivated login status: %d", resp.StatusCode)
	}
}

func TestQRDecodeEndpoint(t *testing.T) {
	c := newTestAPI(t)

	const certID = "01J9ZSZZZB2C3D4E5F6G7H8J9K"
	resp := c.post("/v1/qr/decode", qrDecodeRequest{Payload: `{"certificateId":"` + certID + `"}`}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decode status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["certificate_id"] != certID {
		t.Fatalf("decoded id: %v", body["certificate_id"])
	}

	resp = c.post("/v1/qr/decode", qrDecodeRequest{Payload: "garbage"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("garbage payload status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Extractable but not an id we could ever have issued.
	resp = c.post("/v1/qr/decode", qrDecodeRequest{Payload: `{"certificateId":"c-123"}`}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed id status: %d", resp.StatusCode)
	}
}

func TestInvitationListingScopedToAdminOrg(t *testing.T) {
	c := newTestAPI(t)
	root := c.login("uid-root", "root@example.com")

	resp := c.post("/v1/organizations", createOrgRequest{Name: "Kampus A"}, authHeaders(root.Token))
	orgA := decode[org.Organization](t, resp)
	resp = c.post("/v1/organizations", createOrgRequest{Name: "Kampus B"}, authHeaders(root.Token))
	orgB := decode[org.Organization](t, resp)

	for _, inv := range []inviteRequest{
		{Email: "admin-a@kampus.edu", Role: "admin", OrganizationID: orgA.ID},
		{Email: "mhs-a@kampus.edu", Role: "student", OrganizationID: orgA.ID},
		{Email: "mhs-b@kampus.edu", Role: "student", OrganizationID: orgB.ID},
	} {
		resp = c.post("/v1/invitations", inv, authHeaders(root.Token))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("invite %s: %d", inv.Email, resp.StatusCode)
		}
		resp.Body.Close()
	}

	admin := c.login("uid-admin-a", "admin-a@kampus.edu")
	resp = c.get("/v1/invitations", nil, authHeaders(admin.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %d", resp.StatusCode)
	}
	listing := decode[struct {
		Items []identity.PendingInvitation `json:"items"`
	}](t, resp)
	if len(listing.Items) != 1 {
		t.Fatalf("admin sees %d invitations, want 1", len(listing.Items))
	}
	if listing.Items[0].User.Email != "mhs-a@kampus.edu" {
		t.Fatalf("wrong invitation visible: %s", listing.Items[0].User.Email)
	}

	root2 := c.get("/v1/invitations", nil, authHeaders(root.Token))
	if root2.StatusCode != http.StatusOK {
		t.Fatalf("root list status: %d", root2.StatusCode)
	}
	all := decode[struct {
		Items []identity.PendingInvitation `json:"items"`
	}](t, root2)
	if len(all.Items) != 2 {
		t.Fatalf("root sees %d pending invitations, want 2", len(all.Items))
	}
}

func TestStudentSeesOwnCertificates(t *testing.T) {
	c := newTestAPI(t)
	root := c.login("uid-root", "root@example.com")

	resp := c.post("/v1/organizations", createOrgRequest{Name: "Kampus"}, authHeaders(root.Token))
	o := decode[org.Organization](t, resp)
	resp = c.post("/v1/invitations", inviteRequest{Email: "dosen@kampus.edu", Role: "admin", OrganizationID: o.ID}, authHeaders(root.Token))
	resp.Body.Close()
	admin := c.login("uid-dosen", "dosen@kampus.edu")

	issue := func(recipient string) issueResponse {
		t.Helper()
		resp := c.post("/v1/certificates", issueRequest{
			Title:     "Sertifikat " + recipient,
			Recipient: cert.RecipientInfo{Name: recipient, Email: recipient},
			Files:     cert.FileRefs{CertificateURL: "https://f/x.pdf"},
		}, authHeaders(admin.Token))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("issue for %s: %d", recipient, resp.StatusCode)
		}
		return decode[issueResponse](t, resp)
	}
	mine := issue("ayu@example.com")
	issue("other@example.com")

	student := c.login("uid-ayu", "ayu@example.com")
	resp = c.get("/v1/certificates", nil, authHeaders(student.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("student list status: %d", resp.StatusCode)
	}
	listing := decode[struct {
		Items []cert.Certificate `json:"items"`
	}](t, resp)
	if len(listing.Items) != 1 || listing.Items[0].ID != mine.Certificate.ID {
		t.Fatalf("student listing mismatch: %+v", listing.Items)
	}
}

func TestOrgMembersListing(t *testing.T) {
	c := newTestAPI(t)
	root := c.login("uid-root", "root@example.com")

	resp := c.post("/v1/organizations", createOrgRequest{Name: "Kampus A"}, authHeaders(root.Token))
	orgA := decode[org.Organization](t, resp)
	resp = c.post("/v1/organizations", createOrgRequest{Name: "Kampus B"}, authHeaders(root.Token))
	orgB := decode[org.Organization](t, resp)

	for _, inv := range []inviteRequest{
		{Email: "admin-a@kampus.edu", Role: "admin", OrganizationID: orgA.ID},
		{Email: "mhs-a@kampus.edu", Role: "student", OrganizationID: orgA.ID},
	} {
		resp = c.post("/v1/invitations", inv, authHeaders(root.Token))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("invite %s: %d", inv.Email, resp.StatusCode)
		}
		resp.Body.Close()
	}

	admin := c.login("uid-admin-a", "admin-a@kampus.edu")
	student := c.login("uid-mhs-a", "mhs-a@kampus.edu")

	resp = c.get("/v1/organizations/"+orgA.ID+"/members", nil, authHeaders(admin.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("members status: %d", resp.StatusCode)
	}
	members := decode[struct {
		Items []identity.User `json:"items"`
	}](t, resp)
	if len(members.Items) != 2 {
		t.Fatalf("admin sees %d members, want 2", len(members.Items))
	}

	resp = c.get("/v1/organizations/"+orgA.ID+"/members", nil, authHeaders(student.Token))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student members status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.get("/v1/organizations/"+orgB.ID+"/members", nil, authHeaders(admin.Token))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign org members status: %d", resp.StatusCode)
	}
	resp.Body.Close()
}
