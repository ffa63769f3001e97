package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/repository/firestore"
	"github.com/mnemo-lab/mnemo/pkg/repository/gcs"
	"github.com/mnemo-lab/mnemo/pkg/repository/memory"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the index snapshot repository backend
type Repository struct {
	backend    string
	projectID  string
	databaseID string
	bucket     string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Snapshot repository backend (memory, firestore or gcs)",
			Value:       "memory",
			Sources:     cli.EnvVars("MNEMO_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("MNEMO_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("MNEMO_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "GCS bucket name (required when using gcs backend)",
			Sources:     cli.EnvVars("MNEMO_GCS_BUCKET"),
			Destination: &r.bucket,
		},
	}
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Configure initializes the snapshot repository for the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case "memory", "":
		logging.Default().Info("Using in-memory snapshot repository")
		return memory.New(), nil

	case "firestore":
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore snapshot repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case "gcs":
		if r.bucket == "" {
			return nil, goerr.New("gcs-bucket is required when using gcs backend")
		}
		repo, err := gcs.New(ctx, r.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize gcs repository")
		}
		logging.Default().Info("Using GCS snapshot repository", "bucket", r.bucket)
		return repo, nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
