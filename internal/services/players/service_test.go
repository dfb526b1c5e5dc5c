package players

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/clickergame/internal/dependencies/mocks"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/security"
	"github.com/mcoot/clickergame/internal/storage/memory"
	"github.com/mcoot/clickergame/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage     *memory.Storage
	clock       *mocks.MockClock
	broadcaster *mocks.MockBroadcaster
	hasher      *security.Hasher
	service     *Service
	ctx         context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(testutil.FixedTime)
	s.broadcaster = mocks.NewMockBroadcaster()
	s.hasher = security.NewHasher(bcrypt.MinCost)
	s.service = New(s.storage, s.hasher, s.broadcaster, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) createUser(username string, role model.Role, status model.Status, clicks int64) *model.User {
	u := model.NewUser(username, "hash", role, testutil.FixedTime)
	u.Status = status
	u.ClickCount = clicks
	s.Require().NoError(s.storage.SaveUser(s.ctx, u))
	return u
}

func ptr[T any](v T) *T {
	return &v
}

// GetUser tests

func (s *ServiceSuite) TestGetUser() {
	u := s.createUser("alice", model.RolePlayer, model.StatusInactive, 0)

	got, err := s.service.GetUser(s.ctx, string(u.ID))
	s.Require().NoError(err)
	s.Equal("alice", got.Username)
}

func (s *ServiceSuite) TestGetUserMalformedID() {
	_, err := s.service.GetUser(s.ctx, "not-a-uuid")
	s.ErrorIs(err, model.ErrInvalidID)
}

func (s *ServiceSuite) TestGetUserNotFound() {
	_, err := s.service.GetUser(s.ctx, string(model.NewUserID()))
	s.ErrorIs(err, model.ErrUserNotFound)
}

// ListPlayers tests

func (s *ServiceSuite) TestListPlayersRanksAndExcludesAdmins() {
	s.createUser("a", model.RolePlayer, model.StatusActive, 3)
	s.createUser("root", model.RoleAdmin, model.StatusActive, 50)
	s.createUser("b", model.RolePlayer, model.StatusActive, 7)

	players, err := s.service.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal("b", players[0].Username)
	s.Equal("a", players[1].Username)
	for i := 1; i < len(players); i++ {
		s.GreaterOrEqual(players[i-1].ClickCount, players[i].ClickCount)
	}
}

// AdminToggleBlock tests

func (s *ServiceSuite) TestAdminToggleBlockFromActiveTwiceEndsInactive() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 0)

	got, err := s.service.AdminToggleBlock(s.ctx, string(u.ID))
	s.Require().NoError(err)
	s.Equal(model.StatusBlocked, got.Status)

	got, err = s.service.AdminToggleBlock(s.ctx, string(u.ID))
	s.Require().NoError(err)
	s.Equal(model.StatusInactive, got.Status)
}

func (s *ServiceSuite) TestAdminToggleBlockFromInactive() {
	u := s.createUser("alice", model.RolePlayer, model.StatusInactive, 0)

	got, err := s.service.AdminToggleBlock(s.ctx, string(u.ID))
	s.Require().NoError(err)
	s.Equal(model.StatusBlocked, got.Status)

	stored, _ := s.storage.GetUser(s.ctx, u.ID)
	s.Equal(model.StatusBlocked, stored.Status)
}

func (s *ServiceSuite) TestAdminToggleBlockBroadcastsStatusThenRankings() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 4)

	_, err := s.service.AdminToggleBlock(s.ctx, string(u.ID))
	s.Require().NoError(err)

	events := s.broadcaster.Events()
	s.Require().Len(events, 2)
	s.Equal(model.EventUpdatePlayerStatus, events[0].Event)
	s.Equal(model.EventUpdateRankings, events[1].Event)

	rankings := events[1].Payload.([]*model.User)
	s.Require().Len(rankings, 1)
	s.Equal(model.StatusBlocked, rankings[0].Status)
}

func (s *ServiceSuite) TestAdminToggleBlockErrors() {
	_, err := s.service.AdminToggleBlock(s.ctx, "bad")
	s.ErrorIs(err, model.ErrInvalidID)

	_, err = s.service.AdminToggleBlock(s.ctx, string(model.NewUserID()))
	s.ErrorIs(err, model.ErrUserNotFound)

	s.Empty(s.broadcaster.Events())
}

// UpdatePlayer tests

func (s *ServiceSuite) TestUpdatePlayerPartial() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 4)
	s.clock.Advance(time.Minute)

	got, err := s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{ClickCount: ptr(int64(42))})
	s.Require().NoError(err)
	s.Equal(int64(42), got.ClickCount)
	s.Equal("alice", got.Username)
	s.Equal(model.StatusActive, got.Status)
	s.Equal(testutil.FixedTime.Add(time.Minute), got.UpdatedAt)

	events := s.broadcaster.EventsNamed(model.EventUpdatePlayer)
	s.Require().Len(events, 1)
	s.Equal(int64(42), events[0].Payload.(*model.User).ClickCount)
}

func (s *ServiceSuite) TestUpdatePlayerRehashesPassword() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 0)

	_, err := s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{Password: ptr("newpass")})
	s.Require().NoError(err)

	stored, _ := s.storage.GetUser(s.ctx, u.ID)
	s.NoError(s.hasher.Check(stored.PasswordHash, "newpass"))
}

func (s *ServiceSuite) TestUpdatePlayerRename() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 0)

	got, err := s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{Username: ptr("alicia")})
	s.Require().NoError(err)
	s.Equal("alicia", got.Username)

	_, err = s.storage.GetUserByUsername(s.ctx, "alicia")
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdatePlayerUsernameConflict() {
	s.createUser("alice", model.RolePlayer, model.StatusActive, 0)
	bob := s.createUser("bob", model.RolePlayer, model.StatusActive, 0)

	_, err := s.service.UpdatePlayer(s.ctx, string(bob.ID), UpdateInput{Username: ptr("alice")})
	s.ErrorIs(err, model.ErrUsernameExists)
	s.Empty(s.broadcaster.Events())
}

func (s *ServiceSuite) TestUpdatePlayerValidation() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 0)

	_, err := s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{ClickCount: ptr(int64(-1))})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{Username: ptr(" ")})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{Password: ptr("")})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.UpdatePlayer(s.ctx, string(u.ID), UpdateInput{Password: ptr(strings.Repeat("a", security.MaxPasswordLength+1))})
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.UpdatePlayer(s.ctx, "bad", UpdateInput{})
	s.ErrorIs(err, model.ErrInvalidID)

	_, err = s.service.UpdatePlayer(s.ctx, string(model.NewUserID()), UpdateInput{})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// DeletePlayer tests

func (s *ServiceSuite) TestDeletePlayer() {
	u := s.createUser("alice", model.RolePlayer, model.StatusActive, 0)

	s.Require().NoError(s.service.DeletePlayer(s.ctx, string(u.ID)))

	_, err := s.storage.GetUser(s.ctx, u.ID)
	s.ErrorIs(err, model.ErrUserNotFound)

	last, ok := s.broadcaster.Last()
	s.Require().True(ok)
	s.Equal(model.EventPlayerDeleted, last.Event)
	s.Equal(model.PlayerDeletedPayload{ID: u.ID}, last.Payload)
}

func (s *ServiceSuite) TestDeletePlayerErrors() {
	s.ErrorIs(s.service.DeletePlayer(s.ctx, "bad"), model.ErrInvalidID)
	s.ErrorIs(s.service.DeletePlayer(s.ctx, string(model.NewUserID())), model.ErrUserNotFound)
	s.Empty(s.broadcaster.Events())
}
