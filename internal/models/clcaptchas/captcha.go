package clcaptchas

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"timetracker/internal/clredis"

	"github.com/gin-gonic/gin"
	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Captchas protège le formulaire de connexion
type Captchas struct {
	store      base64Captcha.Store
	driver     base64Captcha.Driver
	production bool
}

// New utilise redis pour le stockage des réponses si un client est fourni,
// sinon le store mémoire de base64Captcha.
func New(client *redis.Client, production bool) *Captchas {
	var store base64Captcha.Store
	if client != nil {
		store = clredis.New(client, "captcha", 5*time.Minute)
	} else {
		store = base64Captcha.DefaultMemStore
	}

	driver := base64Captcha.NewDriverMath(
		80,  // hauteur
		240, // largeur
		6,   // nombre d'opérations à afficher
		base64Captcha.OptionShowHollowLine,
		nil, // couleur de fond
		nil, // police
		nil, // couleurs
	)

	return &Captchas{
		store:      store,
		driver:     driver,
		production: production,
	}
}

func (cap *Captchas) GenerateCaptcha() (map[string]any, error) {
	captcha := base64Captcha.NewCaptcha(cap.driver, cap.store)

	id, b64s, answer, err := captcha.Generate()
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la génération du CAPTCHA: %w", err)
	}

	data := gin.H{
		"captcha_id": id,
		"image":      b64s,
		"answer":     "",
	}

	// la réponse n'est exposée qu'en developpement
	if !cap.production {
		log.Debug().Str("captcha_id", id).Str("answer", answer).Msg("CAPTCHA généré")
		data["answer"] = answer
	}

	return data, nil
}

func (cap *Captchas) VerifyCaptcha(captchaID string, captchaAnswer string) error {
	captchaID = strings.TrimSpace(captchaID)
	captchaAnswer = strings.TrimSpace(captchaAnswer)

	if captchaID == "" || captchaAnswer == "" {
		return fmt.Errorf("CAPTCHA manquant")
	}

	if !cap.store.Verify(captchaID, captchaAnswer, true) {
		return fmt.Errorf("CAPTCHA incorrect")
	}
	return nil
}

func (cap *Captchas) CaptchaHandler(c *gin.Context) {
	data, err := cap.GenerateCaptcha()
	if err != nil {
		log.Error().Err(err).Msg("captcha")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, data)
}
