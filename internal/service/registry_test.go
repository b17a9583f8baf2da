package service

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"content_syncer/internal/domain"
	"content_syncer/internal/service/mocks"
)

type RegistryTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

func (s *RegistryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
}

func (s *RegistryTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) TestResolve_Registered() {
	telegram := mocks.NewMockSourceStrategy(s.ctrl)
	telegram.EXPECT().Type().Return(domain.SourceTypeTelegram).AnyTimes()

	registry := NewStrategyRegistry(telegram)

	strategy, err := registry.Resolve(domain.SourceTypeTelegram)
	s.NoError(err)
	s.Same(telegram, strategy)
}

func (s *RegistryTestSuite) TestResolve_Unregistered() {
	telegram := mocks.NewMockSourceStrategy(s.ctrl)
	telegram.EXPECT().Type().Return(domain.SourceTypeTelegram).AnyTimes()

	registry := NewStrategyRegistry(telegram)

	strategy, err := registry.Resolve(domain.SourceTypeRSS)
	s.Nil(strategy)
	s.ErrorIs(err, domain.ErrUnsupportedSourceType)
	s.Contains(err.Error(), "rss")
}

func (s *RegistryTestSuite) TestResolve_Empty() {
	registry := NewStrategyRegistry()

	_, err := registry.Resolve(domain.SourceTypeTelegram)
	s.ErrorIs(err, domain.ErrUnsupportedSourceType)
}
