package handlers

import (
	"net/http"
)

func (suite *HandlersTestSuite) TestRegisterAndLogin() {
	w := suite.request(http.MethodPost, "/api/register/", nil, map[string]string{
		"username": "dora",
		"email":    "dora@example.com",
		"password": "s3cret-pass",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created map[string]interface{}
	suite.decode(w, &created)
	suite.Equal("dora", created["username"])
	suite.NotContains(created, "password")

	w = suite.request(http.MethodPost, "/api/token/", nil, map[string]string{"username": "dora", "password": "s3cret-pass"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var pair struct {
		Access   string `json:"access"`
		Refresh  string `json:"refresh"`
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
	}
	suite.decode(w, &pair)
	suite.NotEmpty(pair.Access)
	suite.NotEmpty(pair.Refresh)
	suite.Equal("dora", pair.Username)

	w = suite.request(http.MethodPost, "/api/token/refresh/", nil, map[string]string{"refresh": pair.Refresh})
	suite.Equal(http.StatusOK, w.Code)
	suite.NotEmpty(suite.errorBody(w)["access"])

	w = suite.request(http.MethodPost, "/api/token/refresh/", nil, map[string]string{"refresh": pair.Access})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodPost, "/api/token/verify/", nil, map[string]string{"token": pair.Access})
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{}`, w.Body.String())

	w = suite.request(http.MethodPost, "/api/token/verify/", nil, map[string]string{"token": "garbage"})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestRegisterValidation() {
	w := suite.request(http.MethodPost, "/api/register/", nil, map[string]string{"username": "alice", "password": "pw"})
	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.errorBody(w)
	suite.Equal("username", body["field"])
	suite.Equal("A user with that username already exists.", body["error"])

	w = suite.request(http.MethodPost, "/api/register/", nil, map[string]string{"username": "eve"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("password", suite.errorBody(w)["field"])

	w = suite.request(http.MethodPost, "/api/register/", nil, map[string]string{"username": "eve", "password": "pw", "email": "nope"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("email", suite.errorBody(w)["field"])
}

func (suite *HandlersTestSuite) TestTokenBadCredentials() {
	w := suite.request(http.MethodPost, "/api/token/", nil, map[string]string{"username": "alice", "password": "wrong"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("No active account found with the given credentials", suite.errorBody(w)["error"])
}

// OTP

func (suite *HandlersTestSuite) TestOTPFlow() {
	phone := "+2348012345678"

	w := suite.request(http.MethodPost, "/api/request-otp/", nil, map[string]string{"phone_number": phone})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := suite.errorBody(w)
	suite.Equal("OTP sent successfully.", body["message"])
	code, _ := body["otp"].(string)
	suite.Len(code, 6)

	w = suite.request(http.MethodPost, "/api/verify-otp/", nil, map[string]string{"phone_number": phone, "otp": "000000"})
	if code == "000000" {
		suite.Equal(http.StatusOK, w.Code)
		return
	}
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Invalid OTP or phone number.", suite.errorBody(w)["error"])

	w = suite.request(http.MethodPost, "/api/verify-otp/", nil, map[string]string{"phone_number": phone, "otp": code})
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("OTP verified successfully.", suite.errorBody(w)["message"])

	// single use
	w = suite.request(http.MethodPost, "/api/verify-otp/", nil, map[string]string{"phone_number": phone, "otp": code})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestOTPValidationAndThrottle() {
	w := suite.request(http.MethodPost, "/api/request-otp/", nil, map[string]string{})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Phone number is required.", suite.errorBody(w)["error"])

	w = suite.request(http.MethodPost, "/api/verify-otp/", nil, map[string]string{"phone_number": "+1555"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Phone number and OTP are required.", suite.errorBody(w)["error"])

	suite.handlers.SetDebug(false)
	for i := 0; i < 3; i++ {
		w = suite.request(http.MethodPost, "/api/request-otp/", nil, map[string]string{"phone_number": "+15550001"})
		suite.Require().Equal(http.StatusOK, w.Code)
		suite.NotContains(suite.errorBody(w), "otp")
	}
	w = suite.request(http.MethodPost, "/api/request-otp/", nil, map[string]string{"phone_number": "+15550001"})
	suite.Equal(http.StatusTooManyRequests, w.Code)
}
