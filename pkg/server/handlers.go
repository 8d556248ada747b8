package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/entities"
	"github.com/modelplane/modelplane/pkg/orchestrator"
)

type registerModelRequest struct {
	VersionID        string             `json:"version_id"        validate:"required"`
	ModelType        string             `json:"model_type"`
	ArtifactLocation string             `json:"artifact_location" validate:"required"`
	Metrics          map[string]float64 `json:"metrics"`
	Metadata         map[string]string  `json:"metadata"`
}

type recordPredictionRequest struct {
	ModelVersionID string             `json:"model_version_id" validate:"required"`
	Features       map[string]float64 `json:"features"`
	Prediction     string             `json:"prediction"       validate:"required"`
	Probability    float64            `json:"probability"      validate:"probability"`
	Confidence     float64            `json:"confidence"       validate:"probability"`
}

type recordOutcomeRequest struct {
	ActualOutcome string `json:"actual_outcome" validate:"required"`
}

type driftCheckRequest struct {
	ModelVersionID  string               `json:"model_version_id"`
	Reference       map[string][]float64 `json:"reference" validate:"required"`
	Current         map[string][]float64 `json:"current"   validate:"required"`
	PValueThreshold float64              `json:"p_value_threshold"`
}

type retrainRequest struct {
	Force             bool    `json:"force"`
	AutoPromote       *bool   `json:"auto_promote"`
	Requester         string  `json:"requester"`
	BaselineAccuracy  float64 `json:"baseline_accuracy"`
	MinPredictions    int     `json:"min_predictions"`
	AccuracyThreshold float64 `json:"accuracy_threshold"`
}

type windowQuery struct {
	WindowDays     int    `query:"window_days"      validate:"positiveInteger"`
	ModelVersionID string `query:"model_version_id"`
}

type compareQuery struct {
	VersionA string `query:"a" validate:"required"`
	VersionB string `query:"b" validate:"required"`
}

type listQuery struct {
	State string `query:"state"`
}

type decisionsQuery struct {
	Limit int `query:"limit" validate:"positiveInteger"`
}

type deleteQuery struct {
	PurgeArtifact bool `query:"purge_artifact"`
}

func registerRoutes(app *fiber.App, parser *HTTPRequestParser, s *Services) {
	app.Get("/models", func(c *fiber.Ctx) error {
		var query listQuery
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}

		var state *entities.ModelState
		if query.State != "" {
			st := entities.ModelState(query.State)
			state = &st
		}
		versions, err := s.Registry.List(state)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"model_versions": versions})
	})

	app.Get("/models/summary", func(c *fiber.Ctx) error {
		summary, err := s.Registry.Summary()
		if err != nil {
			return err
		}
		return c.JSON(summary)
	})

	app.Get("/models/production", func(c *fiber.Ctx) error {
		version, err := s.Registry.GetProduction()
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Get("/models/staging", func(c *fiber.Ctx) error {
		version, err := s.Registry.GetStaging()
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Get("/models/latest", func(c *fiber.Ctx) error {
		version, err := s.Registry.GetLatest()
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Get("/models/compare", func(c *fiber.Ctx) error {
		var query compareQuery
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}
		result, err := s.Registry.Compare(query.VersionA, query.VersionB)
		if err != nil {
			return err
		}
		return c.JSON(result)
	})

	app.Post("/models", func(c *fiber.Ctx) error {
		var input registerModelRequest
		if err := parser.ParseBody(c, &input); err != nil {
			return err
		}
		version, err := s.Registry.Register(
			input.VersionID,
			entities.ModelType(input.ModelType),
			input.ArtifactLocation,
			input.Metrics,
			input.Metadata,
		)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(version)
	})

	app.Post("/models/rollback", func(c *fiber.Ctx) error {
		restored, err := s.Registry.Rollback()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"restored_version_id": restored})
	})

	app.Post("/models/:version_id/stage", func(c *fiber.Ctx) error {
		version, err := s.Registry.PromoteToStaging(c.Params("version_id"))
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Post("/models/:version_id/promote", func(c *fiber.Ctx) error {
		version, err := s.Registry.PromoteToProduction(c.Params("version_id"))
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Get("/models/:version_id", func(c *fiber.Ctx) error {
		version, err := s.Registry.Get(c.Params("version_id"))
		if err != nil {
			return err
		}
		return c.JSON(version)
	})

	app.Delete("/models/:version_id", func(c *fiber.Ctx) error {
		var query deleteQuery
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}
		if err := s.Registry.Delete(c.Params("version_id"), query.PurgeArtifact); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/predictions", func(c *fiber.Ctx) error {
		var input recordPredictionRequest
		if err := parser.ParseBody(c, &input); err != nil {
			return err
		}
		entry, err := s.Monitor.RecordPrediction(&entities.PredictionLogEntry{
			ModelVersionID: input.ModelVersionID,
			Features:       input.Features,
			Prediction:     input.Prediction,
			Probability:    input.Probability,
			Confidence:     input.Confidence,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	app.Get("/predictions/:prediction_id", func(c *fiber.Ctx) error {
		entry, err := s.Monitor.GetPrediction(c.Params("prediction_id"))
		if err != nil {
			return err
		}
		return c.JSON(entry)
	})

	app.Post("/predictions/:prediction_id/outcome", func(c *fiber.Ctx) error {
		var input recordOutcomeRequest
		if err := parser.ParseBody(c, &input); err != nil {
			return err
		}
		if err := s.Monitor.RecordOutcome(c.Params("prediction_id"), input.ActualOutcome); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/performance/accuracy", func(c *fiber.Ctx) error {
		query := windowQuery{WindowDays: 30}
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}
		report, err := s.Monitor.ComputeAccuracy(query.WindowDays, query.ModelVersionID)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	app.Post("/drift/check", func(c *fiber.Ctx) error {
		var input driftCheckRequest
		if err := parser.ParseBody(c, &input); err != nil {
			return err
		}
		report, err := s.Detector.DetectDrift(
			input.ModelVersionID, input.Reference, input.Current, input.PValueThreshold)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	app.Get("/drift/reports", func(c *fiber.Ctx) error {
		query := windowQuery{WindowDays: 30}
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}
		reports, err := s.Detector.History(query.ModelVersionID, query.WindowDays)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"drift_reports": reports})
	})

	app.Post("/retraining/run", func(c *fiber.Ctx) error {
		var input retrainRequest
		if err := parser.ParseBody(c, &input); err != nil {
			return err
		}

		autoPromote := true
		if input.AutoPromote != nil {
			autoPromote = *input.AutoPromote
		}
		opts := orchestrator.RunOptions{
			CheckOptions: orchestrator.CheckOptions{
				BaselineAccuracy:  input.BaselineAccuracy,
				MinPredictions:    input.MinPredictions,
				AccuracyThreshold: input.AccuracyThreshold,
			},
			Force:       input.Force,
			AutoPromote: autoPromote,
			Requester:   input.Requester,
			DecisionID:  uuid.NewString(),
		}

		// The run is minutes-long, bounded by the trainer; the caller gets
		// the decision id immediately and polls the decision log.
		go func() {
			if _, err := s.Orchestrator.Run(context.Background(), opts); err != nil {
				logrus.WithError(err).WithField("decision_id", opts.DecisionID).
					Error("retraining run failed")
			}
		}()

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"decision_id": opts.DecisionID,
			"status":      "accepted",
		})
	})

	app.Get("/retraining/decisions", func(c *fiber.Ctx) error {
		query := decisionsQuery{Limit: 50}
		if err := parser.ParseQuery(c, &query); err != nil {
			return err
		}
		decisions, err := s.Orchestrator.Decisions(query.Limit)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"decisions": decisions})
	})
}
