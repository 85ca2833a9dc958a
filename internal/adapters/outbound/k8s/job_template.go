package k8s

import (
	"strconv"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
)

const (
	scannerContainer = "scanner"
	toolsContainer   = "install-tools"

	volumeScripts      = "scripts"
	volumeApplications = "applications-config"
	volumeTemp         = "temp-storage"

	envTrustCert = "TRUST_CERT"
	envBDURL     = "BD_URL"
	envBDToken   = "BD_TOKEN"

	secretKeyURL   = "url"
	secretKeyToken = "token"

	jobBackoffLimit = 2

	DefaultScannerImage          = "alpine:3.19"
	DefaultServiceAccount        = "bd-selfscan"
	DefaultCredentialsSecret     = "blackduck-creds"
	DefaultScriptsConfigMap      = "bd-selfscan-scanner-scripts"
	DefaultApplicationsConfigMap = "bd-selfscan-applications"

	installToolsScript = "apk add --no-cache curl jq bash coreutils openjdk17-jre skopeo yq && " +
		"curl -fsSL -o /usr/local/bin/kubectl " +
		"\"https://dl.k8s.io/release/$(curl -L -s https://dl.k8s.io/release/stable.txt)/bin/linux/amd64/kubectl\" && " +
		"chmod +x /usr/local/bin/kubectl"
)

// Exit codes that fail the job immediately instead of consuming pod retries.
var fatalExitCodes = []int32{
	scanjob.ExitConfigError,
	scanjob.ExitValidationError,
	scanjob.ExitPolicyViolation,
}

// JobTemplate holds the cluster-specific parts of a scan job.
type JobTemplate struct {
	Image                 string
	ToolsImage            string
	ServiceAccount        string
	CredentialsSecret     string
	ScriptsConfigMap      string
	ApplicationsConfigMap string
	TrustCert             bool
	// ActiveDeadline is enforced by the job controller in addition to the tracker timeout.
	ActiveDeadline time.Duration
	// TTLAfterFinished lets the cluster collect finished jobs the sweep missed.
	TTLAfterFinished time.Duration
}

func (t JobTemplate) withDefaults() JobTemplate {
	if t.Image == "" {
		t.Image = DefaultScannerImage
	}

	if t.ToolsImage == "" {
		t.ToolsImage = t.Image
	}

	if t.ServiceAccount == "" {
		t.ServiceAccount = DefaultServiceAccount
	}

	if t.CredentialsSecret == "" {
		t.CredentialsSecret = DefaultCredentialsSecret
	}

	if t.ScriptsConfigMap == "" {
		t.ScriptsConfigMap = DefaultScriptsConfigMap
	}

	if t.ApplicationsConfigMap == "" {
		t.ApplicationsConfigMap = DefaultApplicationsConfigMap
	}

	return t
}

func buildJob(namespace string, req scanjob.JobRequest, tmpl JobTemplate) *batchv1.Job {
	tmpl = tmpl.withDefaults()

	podLabels := make(map[string]string, 4)
	for _, key := range []string{
		scanjob.LabelName,
		scanjob.LabelComponent,
		scanjob.LabelScanType,
		scanjob.LabelApplication,
	} {
		if v, ok := req.Labels[key]; ok {
			podLabels[key] = v
		}
	}

	spec := batchv1.JobSpec{
		BackoffLimit: ptr.To(int32(jobBackoffLimit)),
		PodFailurePolicy: &batchv1.PodFailurePolicy{
			Rules: []batchv1.PodFailurePolicyRule{
				{
					Action: batchv1.PodFailurePolicyActionFailJob,
					OnExitCodes: &batchv1.PodFailurePolicyOnExitCodesRequirement{
						ContainerName: ptr.To(scannerContainer),
						Operator:      batchv1.PodFailurePolicyOnExitCodesOpIn,
						Values:        fatalExitCodes,
					},
				},
				{
					Action: batchv1.PodFailurePolicyActionIgnore,
					OnPodConditions: []batchv1.PodFailurePolicyOnPodConditionsPattern{
						{Type: corev1.DisruptionTarget, Status: corev1.ConditionTrue},
					},
				},
			},
		},
		Template: corev1.PodTemplateSpec{
			ObjectMeta: metav1.ObjectMeta{
				Labels: podLabels,
			},
			Spec: corev1.PodSpec{
				ServiceAccountName: tmpl.ServiceAccount,
				RestartPolicy:      corev1.RestartPolicyNever,
				Volumes:            jobVolumes(tmpl),
				InitContainers: []corev1.Container{
					{
						Name:    toolsContainer,
						Image:   tmpl.ToolsImage,
						Command: []string{"/bin/sh", "-c"},
						Args:    []string{installToolsScript},
						VolumeMounts: []corev1.VolumeMount{
							{Name: volumeTemp, MountPath: "/tmp"},
						},
					},
				},
				Containers: []corev1.Container{
					{
						Name:    scannerContainer,
						Image:   tmpl.Image,
						Command: []string{"/bin/bash"},
						Args:    req.Args,
						Env:     jobEnv(req.Env, tmpl),
						VolumeMounts: []corev1.VolumeMount{
							{Name: volumeScripts, MountPath: "/scripts"},
							{Name: volumeApplications, MountPath: "/config"},
							{Name: volumeTemp, MountPath: "/tmp/container-images"},
						},
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse("2Gi"),
								corev1.ResourceCPU:    resource.MustParse("500m"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceMemory:           resource.MustParse("8Gi"),
								corev1.ResourceCPU:              resource.MustParse("4"),
								corev1.ResourceEphemeralStorage: resource.MustParse("50Gi"),
							},
						},
					},
				},
			},
		},
	}

	if tmpl.TTLAfterFinished > 0 {
		spec.TTLSecondsAfterFinished = ptr.To(int32(tmpl.TTLAfterFinished / time.Second))
	}

	if tmpl.ActiveDeadline > 0 {
		spec.ActiveDeadlineSeconds = ptr.To(int64(tmpl.ActiveDeadline / time.Second))
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        req.Name,
			Namespace:   namespace,
			Labels:      req.Labels,
			Annotations: req.Annotations,
		},
		Spec: spec,
	}
}

func jobVolumes(tmpl JobTemplate) []corev1.Volume {
	return []corev1.Volume{
		{
			Name: volumeScripts,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: tmpl.ScriptsConfigMap},
					DefaultMode:          ptr.To(int32(0o755)),
				},
			},
		},
		{
			Name: volumeApplications,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: tmpl.ApplicationsConfigMap},
				},
			},
		},
		{
			Name: volumeTemp,
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{
					SizeLimit: ptr.To(resource.MustParse("50Gi")),
				},
			},
		},
	}
}

func jobEnv(domain []scanjob.EnvVar, tmpl JobTemplate) []corev1.EnvVar {
	env := make([]corev1.EnvVar, 0, len(domain)+3)

	env = append(env,
		secretEnv(envBDURL, tmpl.CredentialsSecret, secretKeyURL),
		secretEnv(envBDToken, tmpl.CredentialsSecret, secretKeyToken),
		corev1.EnvVar{Name: envTrustCert, Value: strconv.FormatBool(tmpl.TrustCert)},
	)

	for _, e := range domain {
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	return env
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}
