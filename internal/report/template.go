// Package report drives section-by-section generation of the four
// regulatory report types from retrieved context, and renders the results.
package report

import (
	"fmt"

	"github.com/clindraft/clindraft/internal/model"
)

// SectionTemplate fixes one section's position, heading, and retrieval
// bias within a report type.
type SectionTemplate struct {
	Ordinal    int
	Heading    string
	Categories []model.Category
}

// Template returns the fixed section list for a report type, in order.
func Template(typ model.ReportType) ([]SectionTemplate, error) {
	switch typ {
	case model.ReportCEP:
		return []SectionTemplate{
			{1, "Scope and Objectives", []model.Category{model.CategoryRegulatory, model.CategoryIntendedUse}},
			{2, "Device Description", []model.Category{model.CategoryDeviceDescription, model.CategoryIntendedUse}},
			{3, "Intended Purpose and Indications", []model.Category{model.CategoryIntendedUse, model.CategoryLabeling}},
			{4, "Clinical Background and Current Knowledge", []model.Category{model.CategoryLiterature, model.CategoryClinicalStudy}},
		}, nil
	case model.ReportCER:
		return []SectionTemplate{
			{1, "Executive Summary", []model.Category{model.CategoryClinicalStudy, model.CategoryLiterature}},
			{2, "Scope", []model.Category{model.CategoryRegulatory}},
			{3, "Device Description", []model.Category{model.CategoryDeviceDescription}},
			{4, "Intended Purpose", []model.Category{model.CategoryIntendedUse}},
			{5, "Clinical Background and State of the Art", []model.Category{model.CategoryLiterature}},
			{6, "Clinical Data Analysis", []model.Category{model.CategoryClinicalStudy, model.CategoryPerformanceTesting}},
			{7, "Safety Evaluation", []model.Category{model.CategoryRiskManagement, model.CategoryClinicalStudy, model.CategoryPostMarket}},
			{8, "Performance Evaluation", []model.Category{model.CategoryPerformanceTesting, model.CategoryClinicalStudy}},
			{9, "Risk-Benefit Analysis", []model.Category{model.CategoryRiskManagement, model.CategoryClinicalStudy}},
			{10, "Conclusions", []model.Category{model.CategoryClinicalStudy, model.CategoryRiskManagement}},
		}, nil
	case model.ReportSSCP:
		return []SectionTemplate{
			{1, "Device Identification", []model.Category{model.CategoryDeviceDescription, model.CategoryRegulatory}},
			{2, "Intended Purpose", []model.Category{model.CategoryIntendedUse}},
			{3, "Device Description", []model.Category{model.CategoryDeviceDescription}},
			{4, "Residual Risks and Warnings", []model.Category{model.CategoryRiskManagement}},
			{5, "Summary of Clinical Evaluation", []model.Category{model.CategoryClinicalStudy, model.CategoryLiterature}},
		}, nil
	case model.ReportLSR:
		return []SectionTemplate{
			{1, "Introduction", []model.Category{model.CategoryLiterature, model.CategoryRegulatory}},
			{2, "PICO Framework", []model.Category{model.CategoryIntendedUse, model.CategoryClinicalStudy}},
			{3, "Search Strings and Terms", []model.Category{model.CategoryLiterature}},
			{4, "Search Results", []model.Category{model.CategoryLiterature}},
		}, nil
	default:
		return nil, fmt.Errorf("unknown report type: %q", typ)
	}
}

// Title returns the full document title for a report type.
func Title(typ model.ReportType) string {
	switch typ {
	case model.ReportCEP:
		return "Clinical Evaluation Plan"
	case model.ReportCER:
		return "Clinical Evaluation Report"
	case model.ReportSSCP:
		return "Summary of Safety and Clinical Performance"
	case model.ReportLSR:
		return "Literature Search Report"
	default:
		return string(typ)
	}
}
