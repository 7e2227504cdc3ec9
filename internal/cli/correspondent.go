package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

type correspondentInput struct {
	Fullname      string `validate:"required"`
	Gender        string `validate:"required,oneof=m M f F u U"`
	EmbeddingFile string `validate:"required,file"`
}

var validate = validator.New()

func newCorrespondentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correspondent",
		Short: "Manage correspondents",
	}

	var in correspondentInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a correspondent from a precomputed voice embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Struct(in); err != nil {
				return apperrors.InvalidInput("correspondent", err.Error())
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			vec, err := readEmbedding(in.EmbeddingFile)
			if err != nil {
				return err
			}
			if len(vec) != a.cfg.Embedding.Dimensions {
				return apperrors.InvalidInput("embedding",
					fmt.Sprintf("got %d dimensions, want %d", len(vec), a.cfg.Embedding.Dimensions))
			}
			gender, _ := types.ParseGender(in.Gender)
			c, err := a.repo.CreateCorrespondent(cmd.Context(), types.Correspondent{
				Fullname:  in.Fullname,
				Gender:    gender,
				Embedding: vec,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created correspondent %d: %s (%s)\n", c.ID, c.Fullname, c.Gender)
			return nil
		},
	}
	add.Flags().StringVar(&in.Fullname, "fullname", "", "Full name of the correspondent")
	add.Flags().StringVar(&in.Gender, "gender", "", "Gender (m = male, f = female, u = unspecified)")
	add.Flags().StringVar(&in.EmbeddingFile, "embedding", "", "Path to a JSON embedding file")
	cmd.AddCommand(add)
	return cmd
}

// readEmbedding accepts either a bare JSON array or {"embedding": [...]}.
func readEmbedding(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embedding: %w", err)
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err == nil {
		return vec, nil
	}
	var wrapped struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Embedding) == 0 {
		return nil, apperrors.InvalidInput("embedding", "expected a JSON array of numbers or {\"embedding\": [...]}")
	}
	return wrapped.Embedding, nil
}
