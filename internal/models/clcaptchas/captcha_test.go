package clcaptchas

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaMemoryStore(t *testing.T) {
	cap := New(nil, false)

	data, err := cap.GenerateCaptcha()
	require.NoError(t, err)
	id := data["captcha_id"].(string)
	answer := data["answer"].(string)
	assert.NotEmpty(t, answer)

	assert.Error(t, cap.VerifyCaptcha(id, "wrong"))
	// une réponse fausse consomme le captcha
	assert.Error(t, cap.VerifyCaptcha(id, answer))
}

func TestCaptchaRedisStore(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	cap := New(client, false)
	data, err := cap.GenerateCaptcha()
	require.NoError(t, err)
	id := data["captcha_id"].(string)

	assert.True(t, m.Exists("captcha:"+id))
	assert.NoError(t, cap.VerifyCaptcha(id, data["answer"].(string)))
	assert.False(t, m.Exists("captcha:"+id))
}

func TestCaptchaMissing(t *testing.T) {
	cap := New(nil, false)
	assert.EqualError(t, cap.VerifyCaptcha(" ", "1"), "CAPTCHA manquant")
	assert.EqualError(t, cap.VerifyCaptcha("id", ""), "CAPTCHA manquant")
}

func TestCaptchaProductionHidesAnswer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/files/captcha", New(nil, true).CaptchaHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/files/captcha", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["captcha_id"])
	assert.NotEmpty(t, body["image"])
	assert.Empty(t, body["answer"])
}
