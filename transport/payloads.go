package transport

import (
	"time"

	"github.com/goliatone/go-connect/core"
)

type connectionPayload struct {
	ID             string             `json:"id"`
	Aggregator     string             `json:"aggregator"`
	UserID         string             `json:"userId"`
	InstitutionID  string             `json:"institutionId,omitempty"`
	Status         string             `json:"status"`
	CurJobID       string             `json:"curJobId,omitempty"`
	IsOAuth        bool               `json:"isOauth"`
	OAuthWindowURI string             `json:"oauthWindowUri,omitempty"`
	Challenges     []challengePayload `json:"challenges,omitempty"`
	ErrorMessage   string             `json:"errorMessage,omitempty"`
	CreatedAt      *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time         `json:"updatedAt,omitempty"`
}

type challengePayload struct {
	ID       string                   `json:"id"`
	Type     string                   `json:"type"`
	Question string                   `json:"question,omitempty"`
	Data     string                   `json:"data,omitempty"`
	Options  []challengeOptionPayload `json:"options,omitempty"`
	Response string                   `json:"response,omitempty"`
}

type challengeOptionPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type credentialPayload struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label,omitempty"`
	FieldName string `json:"fieldName,omitempty"`
	FieldType string `json:"fieldType,omitempty"`
	Value     string `json:"value,omitempty"`
}

type institutionPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	LogoURL    string `json:"logoUrl,omitempty"`
	Code       string `json:"code,omitempty"`
	Aggregator string `json:"aggregator,omitempty"`
	OAuth      bool   `json:"oauth"`
}

func connectionToPayload(conn core.Connection) connectionPayload {
	payload := connectionPayload{
		ID:             conn.ID,
		Aggregator:     conn.Aggregator,
		UserID:         conn.UserID,
		InstitutionID:  conn.InstitutionID,
		Status:         string(conn.Status),
		CurJobID:       conn.CurJobID,
		IsOAuth:        conn.IsOAuth,
		OAuthWindowURI: conn.OAuthWindowURI,
		ErrorMessage:   conn.ErrorMessage,
	}
	if !conn.CreatedAt.IsZero() {
		createdAt := conn.CreatedAt
		payload.CreatedAt = &createdAt
	}
	if !conn.UpdatedAt.IsZero() {
		updatedAt := conn.UpdatedAt
		payload.UpdatedAt = &updatedAt
	}
	for _, challenge := range conn.Challenges {
		payload.Challenges = append(payload.Challenges, challengeToPayload(challenge))
	}
	return payload
}

func challengeToPayload(challenge core.Challenge) challengePayload {
	payload := challengePayload{
		ID:       challenge.ID,
		Type:     string(challenge.Type),
		Question: challenge.Question,
		Data:     challenge.Data,
		Response: challenge.Response,
	}
	for _, option := range challenge.Options {
		payload.Options = append(payload.Options, challengeOptionPayload(option))
	}
	return payload
}

func challengesFromPayload(payloads []challengePayload) []core.Challenge {
	if len(payloads) == 0 {
		return nil
	}
	challenges := make([]core.Challenge, 0, len(payloads))
	for _, payload := range payloads {
		challenge := core.Challenge{
			ID:       payload.ID,
			Type:     core.ChallengeType(payload.Type),
			Question: payload.Question,
			Data:     payload.Data,
			Response: payload.Response,
		}
		for _, option := range payload.Options {
			challenge.Options = append(challenge.Options, core.ChallengeOption(option))
		}
		challenges = append(challenges, challenge)
	}
	return challenges
}

func credentialsFromPayload(payloads []credentialPayload) []core.Credential {
	if len(payloads) == 0 {
		return nil
	}
	credentials := make([]core.Credential, 0, len(payloads))
	for _, payload := range payloads {
		credentials = append(credentials, core.Credential(payload))
	}
	return credentials
}

func credentialsToPayload(credentials []core.Credential) []credentialPayload {
	payloads := make([]credentialPayload, 0, len(credentials))
	for _, credential := range credentials {
		payloads = append(payloads, credentialPayload(credential))
	}
	return payloads
}

func institutionToPayload(institution core.Institution) institutionPayload {
	return institutionPayload(institution)
}
