// Package entity defines the closed taxonomy of sensitive-data categories and
// the span type shared by every detection layer.
//
// Each category belongs to exactly one compliance grouping (HIPAA, ISO 27001,
// SOC 2) and maps to exactly one generic replacement token. The metadata
// lives in a side table so the replacement engine's totality is a checkable
// property rather than an assumption scattered across recognizers.
package entity

import "strings"

// Category is a detected entity type, normalized to SCREAMING_SNAKE_CASE
// (Presidio-compatible entity names).
type Category string

// Personal identifiers.
const (
	CategoryPerson      Category = "PERSON"
	CategoryGender      Category = "GENDER"
	CategoryEthnicity   Category = "ETHNICITY"
	CategoryReligion    Category = "RELIGION"
	CategoryMaritalStat Category = "MARITAL_STATUS"
	CategorySexualOrien Category = "SEXUAL_ORIENTATION"
)

// Contact information.
const (
	CategoryEmailAddress Category = "EMAIL_ADDRESS"
	CategoryPhoneNumber  Category = "PHONE_NUMBER"
	CategoryFaxNumber    Category = "FAX_NUMBER"
	CategoryURL          Category = "URL"
	CategoryIPAddress    Category = "IP_ADDRESS"
)

// Location data.
const (
	CategoryLocation Category = "LOCATION"
	CategoryAddress  Category = "ADDRESS"
	CategoryCity     Category = "CITY"
	CategoryState    Category = "STATE"
	CategoryZipCode  Category = "ZIP_CODE"
	CategoryCountry  Category = "COUNTRY"
)

// Organizations.
const (
	CategoryOrganization Category = "ORGANIZATION"
	CategoryFacility     Category = "FACILITY"
)

// Temporal information. HIPAA treats every date related to an individual as
// an identifier, and ages over 89 as a distinct protected class.
const (
	CategoryDateTime    Category = "DATE_TIME"
	CategoryDate        Category = "DATE"
	CategoryTime        Category = "TIME"
	CategoryDateOfBirth Category = "DATE_OF_BIRTH"
	CategoryAge         Category = "AGE"
	CategoryAgeOver89   Category = "AGE_OVER_89"
)

// Financial information.
const (
	CategoryCreditCard    Category = "CREDIT_CARD"
	CategoryIBANCode      Category = "IBAN_CODE"
	CategoryAccountNumber Category = "ACCOUNT_NUMBER"
	CategoryRoutingNumber Category = "ROUTING_NUMBER"
	CategoryBankAccount   Category = "BANK_ACCOUNT"
	CategorySwiftCode     Category = "SWIFT_CODE"
)

// Government identifiers.
const (
	CategorySSN             Category = "SSN"
	CategoryUSPassport      Category = "US_PASSPORT"
	CategoryUSDriverLicense Category = "US_DRIVER_LICENSE"
	CategoryTaxID           Category = "TAX_ID"
	CategoryNationalID      Category = "NATIONAL_ID"
)

// Medical and health identifiers.
const (
	CategoryMedicalRecordNumber Category = "MEDICAL_RECORD_NUMBER"
	CategoryHealthPlanNumber    Category = "HEALTH_PLAN_NUMBER"
	CategoryPatientID           Category = "PATIENT_ID"
	CategoryPrescriptionNumber  Category = "PRESCRIPTION_NUMBER"
	CategoryNPINumber           Category = "NPI_NUMBER"
	CategoryDEANumber           Category = "DEA_NUMBER"
	CategoryMedicalLicense      Category = "MEDICAL_LICENSE"
	CategoryInsuranceNumber     Category = "INSURANCE_NUMBER"
	CategoryPolicyNumber        Category = "POLICY_NUMBER"
	CategoryMemberID            Category = "MEMBER_ID"
)

// Biometric and genetic data.
const (
	CategoryBiometricID   Category = "BIOMETRIC_ID"
	CategoryGeneticMarker Category = "GENETIC_MARKER"
)

// Vehicle and device identifiers.
const (
	CategoryVIN          Category = "VIN"
	CategoryLicensePlate Category = "LICENSE_PLATE"
	CategoryDeviceID     Category = "DEVICE_ID"
	CategorySerialNumber Category = "SERIAL_NUMBER"
	CategoryMACAddress   Category = "MAC_ADDRESS"
	CategoryIMEI         Category = "IMEI"
)

// Certificates and licenses.
const (
	CategoryCertificateNumber Category = "CERTIFICATE_NUMBER"
	CategoryLicenseNumber     Category = "LICENSE_NUMBER"
)

// Credentials and crypto assets.
const (
	CategoryCryptoWallet Category = "CRYPTO_WALLET"
	CategoryAPIKey       Category = "API_KEY"
	CategoryPassword     Category = "PASSWORD"
	CategoryAccessToken  Category = "ACCESS_TOKEN"
)

// ComplianceClass is the compliance grouping a category reports under.
// Every category belongs to exactly one class.
type ComplianceClass string

const (
	ComplianceHIPAA    ComplianceClass = "hipaa"
	ComplianceISO27001 ComplianceClass = "iso_27001"
	ComplianceSOC2     ComplianceClass = "soc2"
)

// DefaultToken is the replacement for categories with no metadata entry.
// Unknown categories fail closed to a generic token, never to pass-through.
const DefaultToken = "entity"

// Meta is the side-table entry for one category.
type Meta struct {
	Token         string
	Compliance    ComplianceClass
	FallbackScore float64 // base confidence assigned by the fallback recognizer
}

// Fallback confidence tiers, carried over from the service this replaces:
// HIPAA-critical identifiers score 0.8, SOC 2 credential/financial types
// 0.75, everything else 0.5.
const (
	fallbackScoreDefault  = 0.5
	fallbackScoreSOC2High = 0.75
	fallbackScoreHIPAA    = 0.8
)

var metadata = map[Category]Meta{
	CategoryPerson:      {Token: "person", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryGender:      {Token: "gender", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryEthnicity:   {Token: "demographic", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryReligion:    {Token: "demographic", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryMaritalStat: {Token: "demographic", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategorySexualOrien: {Token: "demographic", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},

	CategoryEmailAddress: {Token: "email", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryPhoneNumber:  {Token: "phone", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryFaxNumber:    {Token: "fax", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryURL:          {Token: "website", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryIPAddress:    {Token: "address", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryLocation: {Token: "location", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryAddress:  {Token: "address", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryCity:     {Token: "city", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryState:    {Token: "state", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryZipCode:  {Token: "zipcode", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryCountry:  {Token: "country", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},

	CategoryOrganization: {Token: "organization", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryFacility:     {Token: "facility", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryDateTime:    {Token: "date", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryDate:        {Token: "date", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryTime:        {Token: "time", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryDateOfBirth: {Token: "date", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreHIPAA},
	CategoryAge:         {Token: "age", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryAgeOver89:   {Token: "age", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreHIPAA},

	CategoryCreditCard:    {Token: "payment", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreSOC2High},
	CategoryIBANCode:      {Token: "account", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},
	CategoryAccountNumber: {Token: "account", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},
	CategoryRoutingNumber: {Token: "routing", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},
	CategoryBankAccount:   {Token: "account", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},
	CategorySwiftCode:     {Token: "code", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},

	CategorySSN:             {Token: "identifier", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreHIPAA},
	CategoryUSPassport:      {Token: "identifier", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryUSDriverLicense: {Token: "identifier", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryTaxID:           {Token: "identifier", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},
	CategoryNationalID:      {Token: "identifier", Compliance: ComplianceISO27001, FallbackScore: fallbackScoreDefault},

	CategoryMedicalRecordNumber: {Token: "medical_record", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreHIPAA},
	CategoryHealthPlanNumber:    {Token: "health_plan", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreHIPAA},
	CategoryPatientID:           {Token: "patient_id", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryPrescriptionNumber:  {Token: "prescription", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryNPINumber:           {Token: "provider_id", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryDEANumber:           {Token: "license", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryMedicalLicense:      {Token: "license", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryInsuranceNumber:     {Token: "insurance", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryPolicyNumber:        {Token: "policy", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryMemberID:            {Token: "member_id", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryBiometricID:   {Token: "biometric", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryGeneticMarker: {Token: "genetic_data", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryVIN:          {Token: "vehicle", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryLicensePlate: {Token: "vehicle", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryDeviceID:     {Token: "device", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategorySerialNumber: {Token: "serial", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryMACAddress:   {Token: "address", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryIMEI:         {Token: "device", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryCertificateNumber: {Token: "certificate", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},
	CategoryLicenseNumber:     {Token: "license", Compliance: ComplianceHIPAA, FallbackScore: fallbackScoreDefault},

	CategoryCryptoWallet: {Token: "wallet", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreDefault},
	CategoryAPIKey:       {Token: "credential", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreSOC2High},
	CategoryPassword:     {Token: "credential", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreSOC2High},
	CategoryAccessToken:  {Token: "credential", Compliance: ComplianceSOC2, FallbackScore: fallbackScoreSOC2High},
}

// aliases maps external labels (spaCy/Presidio NER output, legacy names)
// onto the canonical taxonomy.
var aliases = map[string]Category{
	"NAME":               CategoryPerson,
	"PATIENT_NAME":       CategoryPerson,
	"GPE":                CategoryLocation,
	"LOC":                CategoryLocation,
	"ORG":                CategoryOrganization,
	"HOSPITAL":           CategoryFacility,
	"STREET_ADDRESS":     CategoryAddress,
	"US_SSN":             CategorySSN,
	"DRIVER_LICENSE":     CategoryUSDriverLicense,
	"PASSPORT":           CategoryUSPassport,
	"DATE_FULL":          CategoryDate,
	"DATE_ISO":           CategoryDate,
	"ADMISSION_DATE":     CategoryDate,
	"DISCHARGE_DATE":     CategoryDate,
	"DEATH_DATE":         CategoryDate,
	"AGE_GENERAL":        CategoryAge,
	"GENDER_EXPLICIT":    CategoryGender,
	"RACE":               CategoryEthnicity,
	"CRYPTO":             CategoryCryptoWallet,
	"SECRET_KEY":         CategoryAPIKey,
	"AUTH_TOKEN":         CategoryAccessToken,
	"FINGERPRINT":        CategoryBiometricID,
	"RETINA_SCAN":        CategoryBiometricID,
	"FACIAL_RECOGNITION": CategoryBiometricID,
	"DNA_SEQUENCE":       CategoryGeneticMarker,
}

// Parse normalizes a raw entity label to a canonical Category. Labels that
// are neither canonical nor aliased are uppercased and returned as-is; the
// replacement table treats them as unmapped and fails closed to DefaultToken.
func Parse(label string) Category {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
	if alias, ok := aliases[norm]; ok {
		return alias
	}
	return Category(norm)
}

// Known reports whether the category is part of the closed taxonomy.
func (c Category) Known() bool {
	_, ok := metadata[c]
	return ok
}

// Token returns the generic replacement token for the category. Total over
// all Category values: unmapped categories get DefaultToken.
func (c Category) Token() string {
	if m, ok := metadata[c]; ok {
		return m.Token
	}
	return DefaultToken
}

// Compliance returns the compliance grouping the category reports under.
// Unknown categories are grouped under ISO 27001 (generic personal data).
func (c Category) Compliance() ComplianceClass {
	if m, ok := metadata[c]; ok {
		return m.Compliance
	}
	return ComplianceISO27001
}

// FallbackScore returns the base confidence the fallback recognizer assigns
// to matches of this category.
func (c Category) FallbackScore() float64 {
	if m, ok := metadata[c]; ok {
		return m.FallbackScore
	}
	return fallbackScoreDefault
}

// All returns every category in the closed taxonomy, in unspecified order.
func All() []Category {
	out := make([]Category, 0, len(metadata))
	for c := range metadata {
		out = append(out, c)
	}
	return out
}
