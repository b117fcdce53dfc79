package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vanshika/indica/backend/internal/service"
)

// WriteApplicants serialises applicants into a batch file readable by service.LoadApplicants.
func WriteApplicants(applicants []service.Applicant, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return EncodeApplicants(file, applicants)
}

// EncodeApplicants writes the batch document to w.
func EncodeApplicants(w interface{ Write([]byte) (int, error) }, applicants []service.Applicant) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(service.ApplicantFile{Applicants: applicants}); err != nil {
		return fmt.Errorf("encode applicants: %w", err)
	}
	return enc.Close()
}
