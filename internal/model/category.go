package model

// Category is one label from the fixed closed set describing a document's
// regulatory role.
type Category string

const (
	CategoryDeviceDescription  Category = "device_description"
	CategoryIntendedUse        Category = "intended_use"
	CategoryRiskManagement     Category = "risk_management"
	CategoryBiocompatibility   Category = "biocompatibility"
	CategoryClinicalStudy      Category = "clinical_study"
	CategoryLiterature         Category = "literature"
	CategoryPerformanceTesting Category = "performance_testing"
	CategorySterilization      Category = "sterilization"
	CategorySoftware           Category = "software"
	CategoryPostMarket         Category = "post_market"
	CategoryRegulatory         Category = "regulatory"
	CategoryQuality            Category = "quality"
	CategoryLabeling           Category = "labeling"
	CategoryOther              Category = "other"
)

// CategoryInfo describes one category and the weighted keywords that
// signal it during keyword classification.
type CategoryInfo struct {
	Category    Category `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
}

// CategoryTable returns the declared category list in priority order.
// Ties during classification are broken by this order; "other" is last
// and is never selected by keyword score alone.
func CategoryTable() []CategoryInfo {
	return []CategoryInfo{
		{CategoryDeviceDescription, "Device specifications, design documents, drawings, materials",
			[]string{"specification", "design", "drawing", "bom", "materials", "dimensions"}},
		{CategoryIntendedUse, "Intended purpose, indications for use, IFU, labeling",
			[]string{"intended use", "indication", "ifu", "instructions for use", "contraindication"}},
		{CategoryRiskManagement, "Risk analysis, FMEA, FTA, hazard analysis, ISO 14971",
			[]string{"risk", "fmea", "hazard", "fault tree", "iso 14971", "severity", "probability"}},
		{CategoryBiocompatibility, "Biocompatibility testing per ISO 10993",
			[]string{"biocompatibility", "iso 10993", "cytotoxicity", "sensitization", "irritation"}},
		{CategoryClinicalStudy, "Clinical investigation reports, clinical trial data",
			[]string{"clinical study", "clinical investigation", "trial", "patient", "endpoint", "efficacy"}},
		{CategoryLiterature, "Published literature, journal articles, systematic reviews",
			[]string{"published", "journal", "study", "abstract", "conclusion", "peer-reviewed"}},
		{CategoryPerformanceTesting, "Bench testing, performance verification, validation",
			[]string{"test report", "verification", "validation", "performance", "bench test"}},
		{CategorySterilization, "Sterilization validation, sterility assurance",
			[]string{"sterilization", "sterility", "sal", "bioburden", "gamma"}},
		{CategorySoftware, "Software documentation, IEC 62304",
			[]string{"software", "iec 62304", "algorithm", "cybersecurity", "soup"}},
		{CategoryPostMarket, "Post-market data, complaints, vigilance, PMS",
			[]string{"complaint", "adverse event", "vigilance", "pms", "pmcf", "feedback"}},
		{CategoryRegulatory, "Previous submissions, certificates, regulatory correspondence",
			[]string{"510k", "ce mark", "certificate", "notified body", "submission"}},
		{CategoryQuality, "Quality system documents, SOPs, manufacturing",
			[]string{"sop", "quality", "manufacturing", "process", "dhf", "dmr"}},
		{CategoryLabeling, "Labels, packaging, marketing materials",
			[]string{"label", "packaging", "udi", "symbol", "marketing"}},
		{CategoryOther, "Documents that don't fit other categories", nil},
	}
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c Category) bool {
	for _, info := range CategoryTable() {
		if info.Category == c {
			return true
		}
	}
	return false
}

// EntityKeys is the fixed schema of device entities the extractor may emit.
// Values for keys outside this list are dropped during LLM extraction.
var EntityKeys = []string{
	"device_name",
	"device_model",
	"device_class",
	"manufacturer",
	"intended_purpose",
	"indications",
	"contraindications",
	"target_population",
	"anatomical_location",
	"device_materials",
	"sterile",
	"single_use",
	"implantable",
	"active_device",
	"contains_software",
	"contains_medicinal",
	"equivalent_devices",
	"applicable_standards",
}
