package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Applicant is one signup in an operator batch file. Address fields other than
// postal code, number and complement are optional: the lookup fills them, and
// values given here override what it returned.
type Applicant struct {
	ReferralCode string `yaml:"referralCode"`
	Name         string `yaml:"name"`
	NationalID   string `yaml:"nationalId"`
	Email        string `yaml:"email"`
	Phone        string `yaml:"phone"`
	PostalCode   string `yaml:"postalCode"`
	Street       string `yaml:"street,omitempty"`
	Number       string `yaml:"number"`
	Complement   string `yaml:"complement,omitempty"`
	Neighborhood string `yaml:"neighborhood,omitempty"`
	City         string `yaml:"city,omitempty"`
	StateCode    string `yaml:"stateCode,omitempty"`
	Password     string `yaml:"password"`
}

// ApplicantFile is the document layout read by LoadApplicants.
type ApplicantFile struct {
	Applicants []Applicant `yaml:"applicants"`
}

// LoadApplicants reads a batch file.
func LoadApplicants(path string) ([]Applicant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read applicants file: %w", err)
	}
	var file ApplicantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse applicants file %s: %w", path, err)
	}
	return file.Applicants, nil
}

// EnrollmentResult summarises one finished signup.
type EnrollmentResult struct {
	Email       string `yaml:"email"`
	AccountID   string `yaml:"accountId"`
	PlanID      string `yaml:"planId,omitempty"`
	DocumentURL string `yaml:"documentUrl,omitempty"`
}
