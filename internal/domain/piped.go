package domain

import "pipeconsole/internal/wire"

type PipedCloudProvider struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PipedSealedSecretEncryption carries the public half of the key a piped
// uses to decrypt sealed secrets.
type PipedSealedSecretEncryption struct {
	Type      string `json:"type"`
	PublicKey string `json:"publicKey"`
}

type Piped struct {
	ID                     string                       `json:"id"`
	Name                   string                       `json:"name"`
	Desc                   string                       `json:"desc"`
	ProjectID              string                       `json:"projectId"`
	Version                string                       `json:"version"`
	StartedAt              int64                        `json:"startedAt"`
	CloudProviders         []*PipedCloudProvider        `json:"cloudProvidersList"`
	Repositories           []*ApplicationGitRepository  `json:"repositoriesList"`
	EnvIDs                 []string                     `json:"envIdsList"`
	Status                 PipedConnectionStatus        `json:"status"`
	SealedSecretEncryption *PipedSealedSecretEncryption `json:"sealedSecretEncryption,omitempty"`
	KeyHash                string                       `json:"keyHash"`
	Disabled               bool                         `json:"disabled"`
	CreatedAt              int64                        `json:"createdAt"`
	UpdatedAt              int64                        `json:"updatedAt"`
}

// RedactSensitiveData clears fields that must not leave the backend.
func (p *Piped) RedactSensitiveData() {
	p.KeyHash = "redacted"
}

var PipedCloudProviderSchema = wire.NewSchema("model.Piped.CloudProvider",
	wire.String(1, "name"),
	wire.String(2, "type"),
)

var PipedSealedSecretEncryptionSchema = wire.NewSchema("model.Piped.SealedSecretEncryption",
	wire.String(1, "type"),
	wire.String(2, "publicKey"),
)

var PipedSchema = wire.NewSchema("model.Piped",
	wire.Required(wire.String(1, "id")),
	wire.String(2, "name"),
	wire.String(3, "desc"),
	wire.String(4, "projectId"),
	wire.String(5, "version"),
	wire.Int64(6, "startedAt"),
	wire.List(wire.Nested(7, "cloudProvidersList", PipedCloudProviderSchema)),
	wire.List(wire.Nested(8, "repositoriesList", ApplicationGitRepositorySchema)),
	wire.List(wire.String(9, "envIdsList")),
	wire.Enum(10, "status"),
	wire.Nested(11, "sealedSecretEncryption", PipedSealedSecretEncryptionSchema),
	wire.String(12, "keyHash"),
	wire.Bool(13, "disabled"),
	wire.Int64(14, "createdAt"),
	wire.Int64(15, "updatedAt"),
)
