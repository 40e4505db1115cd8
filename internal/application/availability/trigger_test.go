package availability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/internal/domain/notification"
	apperrors "github.com/narwhalmedia/availability/pkg/errors"
	"github.com/narwhalmedia/availability/pkg/logger"
	"github.com/narwhalmedia/availability/test/mocks"
	"github.com/narwhalmedia/availability/test/testutil"
)

type TriggerTestSuite struct {
	suite.Suite

	ctx        context.Context
	requests   *mocks.MockRequestFinder
	metadata   *mocks.MockMetadataProvider
	dispatcher *mocks.CapturingDispatcher
	trigger    *availability.Trigger
}

func (suite *TriggerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.requests = new(mocks.MockRequestFinder)
	suite.metadata = new(mocks.MockMetadataProvider)
	suite.dispatcher = &mocks.CapturingDispatcher{}
	suite.trigger = suite.newTrigger(availability.MatchPolicyRequest)
}

func (suite *TriggerTestSuite) TearDownTest() {
	suite.requests.AssertExpectations(suite.T())
	suite.metadata.AssertExpectations(suite.T())
}

func (suite *TriggerTestSuite) newTrigger(policy availability.MatchPolicy) *availability.Trigger {
	return availability.NewTrigger(
		suite.requests,
		suite.metadata,
		suite.dispatcher,
		logger.NewNoop(),
		availability.Options{Policy: policy},
	)
}

func (suite *TriggerTestSuite) seriesTransition() (media.MediaItem, media.MediaItem) {
	previous := testutil.NewSeries(1399, media.StatusPartiallyAvailable, testutil.SeasonStates{
		1: media.StatusAvailable,
		2: media.StatusPending,
	})
	next := testutil.WithSeasons(previous, media.StatusAvailable, testutil.SeasonStates{
		1: media.StatusAvailable,
		2: media.StatusAvailable,
	})
	return previous, next
}

func (suite *TriggerTestSuite) TestMovieBecomesAvailable() {
	// Arrange
	previous := testutil.NewMovie(550, media.StatusProcessing)
	next := previous
	next.Status = media.StatusAvailable
	req := testutil.NewRequest(next.ID, "alice", 0)

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return([]media.Request{req}, nil).Once()
	suite.metadata.On("GetMovieMetadata", suite.ctx, 550).Return(&availability.Metadata{
		Title:      "Fight Club",
		Overview:   "An insomniac office worker...",
		PosterPath: "/poster.jpg",
	}, nil).Once()

	// Act
	result, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	// Assert
	suite.Require().NoError(err)
	suite.True(result.Changes.MovieAvailable)
	sent := suite.dispatcher.Sent()
	suite.Require().Len(sent, 1)
	suite.Equal(notification.KindMediaAvailable, sent[0].Kind)
	suite.Equal("alice", sent[0].Payload.NotifyUser.Username)
	suite.Equal("Fight Club", sent[0].Payload.Subject)
	suite.Equal("An insomniac office worker...", sent[0].Payload.Message)
	suite.Equal(availability.DefaultImageBaseURL+"/poster.jpg", sent[0].Payload.Image)
	suite.Empty(sent[0].Payload.Extra)
	suite.Equal(result.Notified, []notification.Payload{sent[0].Payload})
}

func (suite *TriggerTestSuite) TestSeriesSeasonCompletesRequest() {
	// Arrange
	previous, next := suite.seriesTransition()
	req := testutil.NewRequest(next.ID, "bob", 0, 1, 2)

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return([]media.Request{req}, nil).Once()
	suite.metadata.On("GetSeriesMetadata", suite.ctx, 1399).Return(&availability.Metadata{Title: "Game of Thrones"}, nil).Once()

	// Act
	result, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]int{2}, result.Changes.Seasons)
	sent := suite.dispatcher.Sent()
	suite.Require().Len(sent, 1)
	suite.Equal("bob", sent[0].Payload.NotifyUser.Username)
	suite.Equal([]notification.ExtraField{{Name: "Seasons", Value: "1, 2"}}, sent[0].Payload.Extra)
	suite.Empty(sent[0].Payload.Image)
}

func (suite *TriggerTestSuite) TestEarlierRequestIsNotNotifiedAgain() {
	// Arrange
	previous, next := suite.seriesTransition()
	earlier := testutil.NewRequest(next.ID, "bob", 0, 1)
	later := testutil.NewRequest(next.ID, "carol", time.Minute, 2)

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return([]media.Request{earlier, later}, nil).Once()
	suite.metadata.On("GetSeriesMetadata", suite.ctx, 1399).Return(&availability.Metadata{Title: "Game of Thrones"}, nil).Once()

	// Act
	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]string{"carol"}, suite.dispatcher.Usernames())
}

func (suite *TriggerTestSuite) TestIdenticalSeasonSetsByPolicy() {
	previous, next := suite.seriesTransition()
	first := testutil.NewRequest(next.ID, "bob", 0, 1, 2)
	second := testutil.NewRequest(next.ID, "dave", time.Minute, 1, 2)

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return([]media.Request{first, second}, nil).Twice()
	suite.metadata.On("GetSeriesMetadata", suite.ctx, 1399).Return(&availability.Metadata{Title: "Game of Thrones"}, nil).Twice()

	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)
	suite.Require().NoError(err)
	suite.Equal([]string{"bob", "dave"}, suite.dispatcher.Usernames())

	suite.dispatcher = &mocks.CapturingDispatcher{}
	_, err = suite.newTrigger(availability.MatchPolicyFirstMatch).HandleTransition(suite.ctx, previous, next)
	suite.Require().NoError(err)
	suite.Equal([]string{"bob"}, suite.dispatcher.Usernames())
}

func (suite *TriggerTestSuite) TestMetadataFetchedOncePerRun() {
	// Arrange
	previous := testutil.NewMovie(550, media.StatusPending)
	next := previous
	next.Status = media.StatusAvailable
	pending := []media.Request{
		testutil.NewRequest(next.ID, "alice", 0),
		testutil.NewRequest(next.ID, "carol", time.Minute),
		testutil.NewRequest(next.ID, "erin", 2*time.Minute),
	}

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return(pending, nil).Once()
	suite.metadata.On("GetMovieMetadata", suite.ctx, 550).Return(&availability.Metadata{Title: "Fight Club"}, nil).Once()

	// Act
	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	// Assert
	suite.Require().NoError(err)
	suite.Equal([]string{"alice", "carol", "erin"}, suite.dispatcher.Usernames())
	suite.metadata.AssertNumberOfCalls(suite.T(), "GetMovieMetadata", 1)
	suite.requests.AssertNumberOfCalls(suite.T(), "FindPendingRequests", 1)
}

func (suite *TriggerTestSuite) TestNotEvaluatedWhileProcessing() {
	previous := testutil.NewMovie(550, media.StatusPending)
	next := previous
	next.Status = media.StatusProcessing

	result, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	suite.Require().NoError(err)
	suite.True(result.Changes.Empty())
	suite.Empty(suite.dispatcher.Sent())
}

func (suite *TriggerTestSuite) TestAlreadyAvailableIsNoop() {
	movie := testutil.NewMovie(550, media.StatusAvailable)

	result, err := suite.trigger.HandleTransition(suite.ctx, movie, movie)

	suite.Require().NoError(err)
	suite.Empty(result.Notified)
	suite.Empty(suite.dispatcher.Sent())
}

func (suite *TriggerTestSuite) TestNoPendingRequestsSkipsMetadata() {
	previous, next := suite.seriesTransition()

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return([]media.Request{}, nil).Once()

	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	suite.Require().NoError(err)
	suite.Empty(suite.dispatcher.Sent())
	suite.metadata.AssertNotCalled(suite.T(), "GetSeriesMetadata", mock.Anything, mock.Anything)
}

func (suite *TriggerTestSuite) TestMetadataFailureSendsNothing() {
	// Arrange
	previous := testutil.NewMovie(550, media.StatusProcessing)
	next := previous
	next.Status = media.StatusAvailable

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).
		Return([]media.Request{testutil.NewRequest(next.ID, "alice", 0), testutil.NewRequest(next.ID, "carol", time.Minute)}, nil).Once()
	suite.metadata.On("GetMovieMetadata", suite.ctx, 550).Return(nil, errors.New("catalog timeout")).Once()

	// Act
	result, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	// Assert
	suite.Require().Error(err)
	suite.Nil(result)
	suite.True(apperrors.IsUnavailable(err))
	suite.Contains(err.Error(), "catalog timeout")
	suite.Empty(suite.dispatcher.Sent())
}

func (suite *TriggerTestSuite) TestRequestLookupFailure() {
	previous, next := suite.seriesTransition()

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return(nil, errors.New("connection refused")).Once()

	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	suite.Require().Error(err)
	suite.True(apperrors.IsUnavailable(err))
	suite.Empty(suite.dispatcher.Sent())
}

func (suite *TriggerTestSuite) TestRejectsDuplicateSeasons() {
	previous, next := suite.seriesTransition()
	next.Seasons = append(next.Seasons, media.Season{SeasonNumber: 2, Status: media.StatusAvailable})

	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	suite.Require().Error(err)
	suite.True(apperrors.IsBadRequest(err))
	suite.ErrorIs(err, media.ErrDuplicateSeason)
}

func (suite *TriggerTestSuite) TestRejectsMismatchedSnapshots() {
	previous := testutil.NewMovie(550, media.StatusProcessing)
	next := testutil.NewMovie(550, media.StatusAvailable)

	_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)

	suite.Require().Error(err)
	suite.True(apperrors.IsBadRequest(err))
}

func (suite *TriggerTestSuite) TestHookPropagatesErrors() {
	previous, next := suite.seriesTransition()

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).Return(nil, errors.New("boom")).Once()

	err := suite.trigger.Hook()(suite.ctx, previous, next)

	suite.True(apperrors.IsUnavailable(err))
}

func (suite *TriggerTestSuite) TestConcurrentTransitionsForSameItem() {
	previous := testutil.NewMovie(550, media.StatusProcessing)
	next := previous
	next.Status = media.StatusAvailable

	suite.requests.On("FindPendingRequests", suite.ctx, next.ID).
		Return([]media.Request{testutil.NewRequest(next.ID, "alice", 0)}, nil)
	suite.metadata.On("GetMovieMetadata", suite.ctx, 550).Return(&availability.Metadata{Title: "Fight Club"}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.trigger.HandleTransition(suite.ctx, previous, next)
			suite.NoError(err)
		}()
	}
	wg.Wait()

	suite.Len(suite.dispatcher.Sent(), 8)
}

func TestTriggerTestSuite(t *testing.T) {
	suite.Run(t, new(TriggerTestSuite))
}
