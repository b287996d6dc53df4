package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core/user"
	"github.com/trezcool/ecole/tests"
)

func Test_userApi_signup(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "taken", "taken@test.cd", user.RoleStudent)

	pwd := testutil.DefaultPassword
	tests := []httpTest{
		{
			name:     "required fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
				"role":             "this field is required",
			}),
		},
		{
			name: "invalid role",
			body: marchallObj(t, user.NewUser{
				Username: "awe", Email: "awe@test.cd", Password: pwd, PasswordConfirm: pwd, Role: "admin",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of: student, teacher, parent"}),
		},
		{
			name: "weak password",
			body: marchallObj(t, user.NewUser{
				Username: "awe", Email: "awe@test.cd", Password: "lol", PasswordConfirm: "lol", Role: user.RoleStudent,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "username taken",
			body: marchallObj(t, user.NewUser{
				Username: "Taken", Email: "awe@test.cd", Password: pwd, PasswordConfirm: pwd, Role: user.RoleStudent,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "signed up",
			body: marchallObj(t, user.NewUser{
				Username: "Awe", Email: "AWE@test.cd", Password: pwd, PasswordConfirm: pwd, Role: "Teacher",
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/signup"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(t, tt)
			if tt.wantCode != http.StatusCreated {
				return
			}

			var resp SignupResponse
			unmarchallObj(t, rec.Body.Bytes(), &resp)
			assert.NotEmpty(t, resp.Token)
			assert.NotEmpty(t, resp.User.ID)
			assert.Equal(t, "awe", resp.User.Username)
			assert.Equal(t, "awe@test.cd", resp.User.Email)
			assert.Equal(t, user.RoleTeacher, resp.User.Role)
		})
	}
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "awe", "awe@test.cd", user.RoleStudent)
	require.True(t, usr.LastLogin.IsZero())

	failed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name:     "required fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "lol", Password: testutil.DefaultPassword}),
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: "awe", Password: "lol"}),
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{name: "by username", body: marchallObj(t, LoginRequest{Username: "AWE", Password: testutil.DefaultPassword}), wantCode: http.StatusOK},
		{name: "by email", body: marchallObj(t, LoginRequest{Username: "awe@test.cd", Password: testutil.DefaultPassword}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(t, tt)
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp LoginResponse
			unmarchallObj(t, rec.Body.Bytes(), &resp)
			assert.NotEmpty(t, resp.Token)
		})
	}

	loggedIn, err := env.usrRepo.GetUser(testCtx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.False(t, loggedIn.LastLogin.IsZero())
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)
	student := testutil.CreateUser(t, env.usrRepo, "awe", "awe@test.cd", user.RoleStudent)
	ghost := testutil.CreateUser(t, env.usrRepo, "ghost", "ghost@test.cd", user.RoleStudent)
	ghostToken := env.getToken(t, ghost)
	_, err := env.usrRepo.DeleteUsersByID(testCtx, ghost.ID)
	require.NoError(t, err)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    env.conf.AppName,
			Subject:   student.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(env.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * env.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     student.Username,
		Role:         student.Role,
	}
	unrefreshableToken, err := env.server.auth.GenerateToken(unrefreshableClaims)
	require.NoError(t, err)

	expiredClaims := env.server.auth.NewClaims(student)
	expiredClaims.ExpiresAt = now.Add(-time.Minute).Unix()
	expiredToken, err := env.server.auth.GenerateToken(expiredClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "Deleted user", token: ghostToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: env.getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(t, tt)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				unmarchallObj(t, rec.Body.Bytes(), &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "awe", "awe@test.cd", user.RoleTeacher)
	testutil.CreateUser(t, env.usrRepo, "taken", "taken@test.cd", user.RoleStudent)
	token := env.getToken(t, usr)

	t.Run("retrieve", func(t *testing.T) {
		env.serve(t, httpTest{method: http.MethodGet, path: "/v1/users/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)})
	})

	tests := []httpTest{
		{
			name:     "username taken",
			body:     marchallObj(t, user.UpdateUser{Username: "taken"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name:     "password confirmation required",
			body:     marchallObj(t, user.UpdateUser{Password: "Yt7@pL2#qX"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password_confirm": "this field is required"}),
		},
		{
			name:     "updated",
			body:     []byte(`{"username": "Awe2", "role": "parent"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/users/me"
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(t, tt)
			if tt.wantCode != http.StatusOK {
				return
			}

			var updated user.User
			unmarchallObj(t, rec.Body.Bytes(), &updated)
			assert.Equal(t, "awe2", updated.Username)
			assert.Equal(t, "awe@test.cd", updated.Email)
			assert.Equal(t, user.RoleTeacher, updated.Role)
		})
	}

	t.Run("roles", func(t *testing.T) {
		env.serve(t, httpTest{method: http.MethodGet, path: "/v1/users/roles", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)})
	})
}
