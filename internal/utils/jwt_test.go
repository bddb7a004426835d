package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager(
		"test-secret-key",
		1*time.Hour,    // access token expiry
		7*24*time.Hour, // refresh token expiry
	)
}

// 测试创建JWT管理器
func (suite *JWTTestSuite) TestNewJWTManager() {
	manager := NewJWTManager("secret", 1*time.Hour, 24*time.Hour)
	suite.NotNil(manager)
	// 私有字段无法直接访问，通过GetTokenExpiry间接验证
	suite.Equal(1*time.Hour, manager.GetTokenExpiry("access"))
	suite.Equal(24*time.Hour, manager.GetTokenExpiry("refresh"))
}

// 测试生成访问令牌
func (suite *JWTTestSuite) TestGenerateAccessToken() {
	token, err := suite.manager.GenerateAccessToken(123, "Ava", RolePlayer)
	suite.NoError(err)
	suite.NotEmpty(token)
}

// 测试生成刷新令牌
func (suite *JWTTestSuite) TestGenerateRefreshToken() {
	token, err := suite.manager.GenerateRefreshToken(456)
	suite.NoError(err)
	suite.NotEmpty(token)
}

// 测试验证令牌
func (suite *JWTTestSuite) TestValidateToken() {
	token, _ := suite.manager.GenerateAccessToken(789, "Ben", RoleHost)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.NotNil(claims)
	suite.Equal(int64(789), claims.UserID)
	suite.Equal("Ben", claims.DisplayName)
	suite.Equal(RoleHost, claims.Role)
	suite.True(claims.IsHost())
	suite.Equal("access", claims.TokenType)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	_, err := suite.manager.ValidateToken("not-a-token")
	suite.Error(err)

	// 其他密钥签出来的令牌
	other := NewJWTManager("another-secret", time.Hour, time.Hour)
	token, _ := other.GenerateAccessToken(1, "Eve", RolePlayer)
	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestValidateExpiredToken() {
	expired := NewJWTManager("test-secret-key", -time.Minute, time.Hour)
	token, err := expired.GenerateAccessToken(1, "Ava", RolePlayer)
	suite.NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试刷新访问令牌
func (suite *JWTTestSuite) TestRefreshAccessToken() {
	refresh, err := suite.manager.GenerateRefreshToken(321)
	suite.NoError(err)

	access, err := suite.manager.RefreshAccessToken(refresh, "Cleo", RolePlayer)
	suite.NoError(err)

	claims, err := suite.manager.ValidateToken(access)
	suite.NoError(err)
	suite.Equal(int64(321), claims.UserID)
	suite.Equal("Cleo", claims.DisplayName)
	suite.Equal("access", claims.TokenType)
}

// 测试访问令牌不能当刷新令牌用
func (suite *JWTTestSuite) TestRefreshRejectsAccessToken() {
	access, _ := suite.manager.GenerateAccessToken(1, "Ava", RolePlayer)
	_, err := suite.manager.RefreshAccessToken(access, "Ava", RolePlayer)
	suite.Error(err)
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
