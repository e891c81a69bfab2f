package services

import (
	"context"
	"fmt"
	"log"

	"PodcastStudio-admin/internal/models"
)

// maxStageProgress is the ceiling until the pipeline's final bookkeeping sets 100.
const maxStageProgress = 95

// WaterfallResult summarizes one waterfall run.
type WaterfallResult struct {
	OutputsGenerated int
	PieceIDs         []string
	ClipIDs          []string
	Errors           []string
}

// GenerationService runs content generators in order and persists what they produce.
type GenerationService struct {
	jobs       JobStore
	pieces     PieceStore
	clips      ClipStore
	generators map[models.ContentType]Generator
}

func NewGenerationService(jobs JobStore, pieces PieceStore, clips ClipStore, generators map[models.ContentType]Generator) (*GenerationService, error) {
	if jobs == nil || pieces == nil || clips == nil {
		return nil, fmt.Errorf("GenerationService: stores must not be nil")
	}
	if len(generators) == 0 {
		return nil, fmt.Errorf("GenerationService: no generators registered")
	}
	return &GenerationService{jobs: jobs, pieces: pieces, clips: clips, generators: generators}, nil
}

// RunWaterfall runs one generator per requested type, sequentially. A failing generator is
// recorded on the job as "<type>: <message>" and the remaining ones still run. Job progress
// advances by 100/len(types) per stage, capped at maxStageProgress.
func (s *GenerationService) RunWaterfall(ctx context.Context, job *models.ContentGenerationJob, in GenerationInput, types []models.ContentType) (*WaterfallResult, error) {
	if job == nil {
		return nil, fmt.Errorf("RunWaterfall: job must not be nil")
	}
	in.JobID = job.ID
	result := &WaterfallResult{}
	total := len(types)

	for i, ct := range types {
		log.Printf("INFO: [Waterfall] job %s: stage %d/%d (%s)\n", job.ID, i+1, total, ct)
		created, clipIDs, err := s.runStage(ctx, ct, in)
		result.OutputsGenerated += len(created)
		result.PieceIDs = append(result.PieceIDs, created...)
		result.ClipIDs = append(result.ClipIDs, clipIDs...)
		if err != nil {
			msg := fmt.Sprintf("%s: %s", ct, err.Error())
			log.Printf("WARN: [Waterfall] job %s: %s\n", job.ID, msg)
			result.Errors = append(result.Errors, msg)
			job.Errors = append(job.Errors, msg)
		}

		job.OutputsGenerated += len(created)
		job.Progress = clampInt((i+1)*100/total, 0, maxStageProgress)
		if err := s.jobs.UpdateJob(ctx, job); err != nil {
			log.Printf("WARN: [Waterfall] job %s: progress update failed: %v\n", job.ID, err)
		}
	}
	log.Printf("INFO: [Waterfall] job %s finished: %d outputs, %d errors\n", job.ID, result.OutputsGenerated, len(result.Errors))
	return result, nil
}

// runStage returns the ids of pieces it managed to persist even when it also returns an error.
func (s *GenerationService) runStage(ctx context.Context, ct models.ContentType, in GenerationInput) ([]string, []string, error) {
	gen, ok := s.generators[ct]
	if !ok {
		return nil, nil, ErrUnknownContentType
	}
	outputs, err := gen.Generate(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if len(outputs) == 0 {
		return nil, nil, fmt.Errorf("generator produced no output")
	}

	var pieceIDs, clipIDs []string
	for _, out := range outputs {
		if err := s.pieces.CreatePiece(ctx, out.Piece); err != nil {
			return pieceIDs, clipIDs, fmt.Errorf("saving content piece: %w", err)
		}
		pieceIDs = append(pieceIDs, out.Piece.ID)
		if out.Clip == nil {
			continue
		}
		out.Clip.ContentPieceID = out.Piece.ID
		if err := s.clips.CreateClip(ctx, out.Clip); err != nil {
			// the piece is already usable without its companion
			log.Printf("WARN: [Waterfall] saving clip asset for piece %s failed: %v\n", out.Piece.ID, err)
			continue
		}
		clipIDs = append(clipIDs, out.Clip.ID)
	}
	return pieceIDs, clipIDs, nil
}
