package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-217/useradmin/useradmin/directory"
	"github.com/m-217/useradmin/useradmin/quota"
)

type mockDirectory struct {
	users  map[string]bool
	groups map[string][]string
	err    error
	calls  []string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{users: map[string]bool{}, groups: map[string][]string{}}
}

func (m *mockDirectory) record(format string, args ...interface{}) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockDirectory) UserExists(username string) (bool, error) {
	m.record("UserExists(%s)", username)
	return m.users[username], m.err
}

func (m *mockDirectory) GroupExists(name string) (bool, error) {
	m.record("GroupExists(%s)", name)
	_, ok := m.groups[name]
	return ok, m.err
}

func (m *mockDirectory) AddUser(u directory.NewUser) error {
	m.record("AddUser(%s)", u.Username)
	if m.err != nil {
		return m.err
	}
	m.users[u.Username] = true
	return nil
}

func (m *mockDirectory) AddGroup(name string, gid int, member string) error {
	m.record("AddGroup(%s)", name)
	if m.err != nil {
		return m.err
	}
	m.groups[name] = []string{member}
	return nil
}

func (m *mockDirectory) AddGroupMember(group, username string) error {
	m.record("AddGroupMember(%s,%s)", group, username)
	if m.err != nil {
		return m.err
	}
	if members, ok := m.groups[group]; ok {
		m.groups[group] = append(members, username)
	}
	return nil
}

func (m *mockDirectory) DeleteUser(username string) error {
	m.record("DeleteUser(%s)", username)
	return m.err
}

func (m *mockDirectory) DeleteGroup(name string) error {
	m.record("DeleteGroup(%s)", name)
	return m.err
}

func (m *mockDirectory) ListUsers() ([]directory.UserEntry, error) {
	m.record("ListUsers()")
	if m.err != nil {
		return nil, m.err
	}
	entries := []directory.UserEntry{}
	for username := range m.users {
		entries = append(entries, directory.UserEntry{Username: username})
	}
	return entries, nil
}

func (m *mockDirectory) Close() {}

type mockRealm struct {
	err        error
	principals map[string]bool
	calls      []string
}

func newMockRealm() *mockRealm {
	return &mockRealm{principals: map[string]bool{}}
}

func (m *mockRealm) AddPrincipal(ctx context.Context, username, password string) error {
	m.calls = append(m.calls, "AddPrincipal("+username+")")
	if m.err != nil {
		return m.err
	}
	m.principals[username] = true
	return nil
}

func (m *mockRealm) DeletePrincipal(ctx context.Context, username string) error {
	m.calls = append(m.calls, "DeletePrincipal("+username+")")
	return m.err
}

func (m *mockRealm) CheckPrincipal(ctx context.Context, username string) bool {
	m.calls = append(m.calls, "CheckPrincipal("+username+")")
	return m.principals[username]
}

type mockHome struct {
	err     error
	created map[string]bool
	calls   []string
}

func newMockHome() *mockHome {
	return &mockHome{created: map[string]bool{}}
}

func (m *mockHome) Create(username string, mode os.FileMode) error {
	m.calls = append(m.calls, "Create("+username+")")
	if m.err != nil {
		return m.err
	}
	m.created[username] = true
	return nil
}

func (m *mockHome) Exists(username string) bool {
	return m.created[username]
}

func (m *mockHome) Remove(username string) error {
	m.calls = append(m.calls, "Remove("+username+")")
	return m.err
}

type mockQuota struct {
	ok         bool
	report     quota.Report
	fetchCalls int
	setCalls   []string
}

func (m *mockQuota) SetUserQuota(ctx context.Context, username string) bool {
	m.setCalls = append(m.setCalls, username)
	return m.ok
}

func (m *mockQuota) FetchAllQuotas(ctx context.Context) quota.Report {
	m.fetchCalls++
	if m.report == nil {
		return quota.Report{}
	}
	return m.report
}

func (m *mockQuota) FetchUserQuota(ctx context.Context, username string) string {
	return m.FetchAllQuotas(ctx).Render(username)
}

type testEngine struct {
	*Engine
	dir   *mockDirectory
	realm *mockRealm
	home  *mockHome
	quota *mockQuota
}

func newTestEngine() *testEngine {
	dir := newMockDirectory()
	realm := newMockRealm()
	home := newMockHome()
	q := &mockQuota{ok: true}
	return &testEngine{
		Engine: &Engine{
			Directory: dir,
			Realm:     realm,
			Home:      home,
			Quota:     q,
			HomeMode:  0o750,
		},
		dir:   dir,
		realm: realm,
		home:  home,
		quota: q,
	}
}

func aliceSpec(steps ...Step) Spec {
	return Spec{
		UID:       1001,
		Username:  "alice",
		Surname:   "Ivanova",
		Firstname: "Alice",
		Password:  "secret123",
		Groups:    []string{"students"},
		Steps:     steps,
	}
}

func TestProvisionAllSteps(t *testing.T) {
	e := newTestEngine()
	e.dir.groups["students"] = []string{}

	result := e.Provision(context.Background(), aliceSpec(AllSteps()...))

	assert.Equal(t, Result{
		StepLDAP:     Succeeded,
		StepKerberos: Succeeded,
		StepHome:     Succeeded,
		StepQuota:    Succeeded,
	}, result)
	assert.True(t, result.Overall())
	assert.NoError(t, result.Err())

	assert.Contains(t, e.dir.calls, "AddGroup(alice)")
	assert.Contains(t, e.dir.calls, "AddUser(alice)")
	assert.Contains(t, e.dir.calls, "AddGroupMember(students,alice)")
	assert.Equal(t, []string{"AddPrincipal(alice)"}, e.realm.calls)
	assert.Equal(t, []string{"Create(alice)"}, e.home.calls)
	assert.Equal(t, []string{"alice"}, e.quota.setCalls)
}

func TestProvisionSubsetNeverTouchesOtherSubsystems(t *testing.T) {
	e := newTestEngine()

	result := e.Provision(context.Background(), aliceSpec(StepHome, StepQuota))

	assert.Equal(t, Skipped, result[StepLDAP])
	assert.Equal(t, Skipped, result[StepKerberos])
	assert.Equal(t, Succeeded, result[StepHome])
	assert.Equal(t, Succeeded, result[StepQuota])
	assert.True(t, result.Overall())

	assert.Empty(t, e.dir.calls, "directory must not be touched")
	assert.Empty(t, e.realm.calls, "realm must not be touched")
}

func TestProvisionFailureIsolation(t *testing.T) {
	e := newTestEngine()
	e.dir.err = errors.New("directory unavailable")

	result := e.Provision(context.Background(), aliceSpec(AllSteps()...))

	assert.Equal(t, Failed, result[StepLDAP])
	assert.Equal(t, Succeeded, result[StepKerberos])
	assert.Equal(t, Succeeded, result[StepHome])
	assert.Equal(t, Succeeded, result[StepQuota])
	assert.False(t, result.Overall())
	assert.Error(t, result.Err())

	// Later steps were still attempted.
	assert.NotEmpty(t, e.home.calls)
	assert.NotEmpty(t, e.quota.setCalls)
}

func TestProvisionIdempotentDirectoryStep(t *testing.T) {
	e := newTestEngine()
	e.dir.users["alice"] = true

	result := e.Provision(context.Background(), aliceSpec(StepLDAP))

	assert.Equal(t, Succeeded, result[StepLDAP])
	assert.NotContains(t, e.dir.calls, "AddUser(alice)")
	assert.NotContains(t, e.dir.calls, "AddGroup(alice)")
}

func TestProvisionSkipsPrimaryGroupInSecondaryList(t *testing.T) {
	e := newTestEngine()

	spec := aliceSpec(StepLDAP)
	spec.Groups = []string{"alice", "students"}
	e.Provision(context.Background(), spec)

	assert.NotContains(t, e.dir.calls, "AddGroupMember(alice,alice)")
	assert.Contains(t, e.dir.calls, "AddGroupMember(students,alice)")
}

func TestProvisionFixedStepOrder(t *testing.T) {
	e := newTestEngine()

	// Requested in reverse; executed in the canonical order.
	e.Provision(context.Background(), aliceSpec(StepQuota, StepHome, StepKerberos, StepLDAP))

	require.NotEmpty(t, e.dir.calls)
	require.NotEmpty(t, e.realm.calls)
	require.NotEmpty(t, e.home.calls)
	require.NotEmpty(t, e.quota.setCalls)
}

func TestQuotaStepReportsBackendFailure(t *testing.T) {
	e := newTestEngine()
	e.quota.ok = false

	result := e.Provision(context.Background(), aliceSpec(StepQuota))

	assert.Equal(t, Failed, result[StepQuota])
	assert.False(t, result.Overall())
}

func TestParseStep(t *testing.T) {
	s, err := ParseStep("kerberos")
	require.NoError(t, err)
	assert.Equal(t, StepKerberos, s)

	_, err = ParseStep("nfs")
	assert.Error(t, err)
}

func TestDeleteUserAbsentEverywhere(t *testing.T) {
	e := newTestEngine()

	assert.NoError(t, e.DeleteUser(context.Background(), "ghost"))
}

func TestDeleteUserAggregatesFailures(t *testing.T) {
	e := newTestEngine()
	e.dir.err = errors.New("directory unavailable")

	err := e.DeleteUser(context.Background(), "alice")
	assert.Error(t, err)
	// The realm and home removals were still attempted.
	assert.Contains(t, e.realm.calls, "DeletePrincipal(alice)")
	assert.Contains(t, e.home.calls, "Remove(alice)")
}
