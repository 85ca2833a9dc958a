package scanjob

const (
	LabelName        = "app.kubernetes.io/name"
	LabelComponent   = "app.kubernetes.io/component"
	LabelInstance    = "app.kubernetes.io/instance"
	LabelManagedBy   = "app.kubernetes.io/managed-by"
	LabelScanType    = "scan-type"
	LabelTrigger     = "trigger"
	LabelApplication = "target-application"

	AnnotationApplication = "bd-selfscan.io/application"
	AnnotationNamespace   = "bd-selfscan.io/namespace"
	AnnotationTrigger     = "bd-selfscan.io/trigger"
	AnnotationCreatedBy   = "bd-selfscan.io/created-by"
	AnnotationRecordID    = "bd-selfscan.io/record-id"

	LabelNameValue      = "bd-selfscan"
	LabelComponentValue = "scanner"
	ManagedByValue      = "bd-selfscan-controller"
	ScanTypeValue       = "automated"

	// ManagedJobSelector selects every job created by the controller.
	ManagedJobSelector = LabelName + "=" + LabelNameValue + "," + LabelManagedBy + "=" + ManagedByValue

	jobNamePrefix   = "bd-selfscan-auto-"
	jobNameTime     = "20060102-150405"
	jobNameMaxLen   = 63
	jobNameSuffixes = 5

	scanScript = "/scripts/scan-application.sh"
)

// Exit codes understood from the scan payload.
const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitValidationError = 2
	ExitExecutionError  = 3
	ExitPolicyViolation = 9
)

// Payload environment contract.
const (
	EnvApplication   = "SCAN_APPLICATION"
	EnvNamespace     = "SCAN_NAMESPACE"
	EnvLabelSelector = "SCAN_LABEL_SELECTOR"
	EnvProjectGroup  = "SCAN_PROJECT_GROUP"
	EnvProjectTier   = "SCAN_PROJECT_TIER"
	EnvPolicyRisk    = "POLICY_GATING_RISK"
	EnvVersionSource = "VERSION_SOURCE"
	EnvVersion       = "PROJECT_VERSION"
	EnvTrigger       = "SCAN_TRIGGER"

	VersionSourceExplicit = "explicit"
	VersionSourceAuto     = "auto"
)

// Record reasons.
const (
	ReasonCompleted        = "Completed"
	ReasonPolicyViolation  = "PolicyViolation"
	ReasonExitCode         = "ExitCode"
	ReasonDeadlineExceeded = "DeadlineExceeded"
	ReasonTimeout          = "ControllerTimeout"
	ReasonJobMissing       = "JobMissing"
	ReasonCreateFailed     = "CreateFailed"
	ReasonInvalidSpec      = "InvalidSpec"
)
