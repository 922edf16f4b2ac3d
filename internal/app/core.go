package app

import (
	"fmt"
	"log/slog"

	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
	"purepresenter/internal/security"
)

// Core holds the license components shared by the local service and the
// admin tools. Everything secret-dependent is built here from config.
type Core struct {
	Cipher      *security.Codec
	Tokens      *license.TokenCodec
	Store       *license.Store
	Revocations *license.RevocationList
	Manager     *license.Manager
}

// NewCore wires the codecs, the state store and the revocation list into a
// decision engine. Extra options are applied after the config-derived ones.
func NewCore(cfg config.LicenseConfig, logger *slog.Logger, opts ...license.Option) (*Core, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	cipher, err := security.NewCodec(cfg.Secret, cfg.Salt, security.KDFParams{
		N: cfg.KDF.N,
		R: cfg.KDF.R,
		P: cfg.KDF.P,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create license file codec: %w", err)
	}

	signer, err := license.NewSigner(cfg.SignatureAlgorithm, cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create license signer: %w", err)
	}

	core := &Core{
		Cipher:      cipher,
		Tokens:      license.NewTokenCodec(signer, nil),
		Store:       license.NewStore(cfg.StateFile, cipher, nil, logger),
		Revocations: license.NewRevocationList(cfg.RevocationFile, logger),
	}

	managerOpts := append([]license.Option{
		license.WithExpiringSoonDays(cfg.ExpiringSoonDays),
		license.WithLogger(logger),
	}, opts...)
	core.Manager = license.NewManager(core.Tokens, core.Store, core.Revocations, managerOpts...)

	return core, nil
}
