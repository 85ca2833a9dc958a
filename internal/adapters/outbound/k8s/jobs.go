package k8s

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/utils/ptr"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
)

func (a *Adapter) CreateJobCommand(
	ctx context.Context,
	req scanjob.JobRequest,
) error {
	job := buildJob(a.opts.Namespace, req, a.opts.Job)

	_, err := a.clientset.BatchV1().Jobs(a.opts.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return wrapAPIError("create job", err)
	}

	return nil
}

func (a *Adapter) GetJobQuery(
	ctx context.Context,
	name string,
) (scanjob.JobStatus, error) {
	job, err := a.clientset.BatchV1().Jobs(a.opts.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return scanjob.JobStatus{}, wrapAPIError("get job", err)
	}

	return a.jobStatus(ctx, job), nil
}

// DeleteJobCommand deletes the job and lets the garbage collector remove its pods.
func (a *Adapter) DeleteJobCommand(
	ctx context.Context,
	name string,
) error {
	err := a.clientset.BatchV1().Jobs(a.opts.Namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: ptr.To(metav1.DeletePropagationBackground),
	})
	if err != nil {
		return wrapAPIError("delete job", err)
	}

	return nil
}

func (a *Adapter) ListJobsQuery(
	ctx context.Context,
) ([]scanjob.JobStatus, error) {
	list, err := a.clientset.BatchV1().Jobs(a.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: scanjob.ManagedJobSelector,
	})
	if err != nil {
		return nil, wrapAPIError("list jobs", err)
	}

	out := make([]scanjob.JobStatus, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, a.jobStatus(ctx, &list.Items[i]))
	}

	return out, nil
}

// jobStatus converts the job and, for failed jobs, looks up the scanner exit code.
// A failed lookup leaves the exit code unset.
func (a *Adapter) jobStatus(ctx context.Context, job *batchv1.Job) scanjob.JobStatus {
	status := toDomainJobStatus(job)
	if status.Phase != scanjob.JobPhaseFailed || status.Reason == batchv1.JobReasonDeadlineExceeded {
		return status
	}

	code, err := a.scannerExitCode(ctx, job.Name)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to read scanner exit code",
			"job", job.Name,
			"reason", err,
		)

		return status
	}

	status.ExitCode = code

	return status
}

func (a *Adapter) scannerExitCode(ctx context.Context, jobName string) (*int32, error) {
	selector := labels.Set{batchv1.JobNameLabel: jobName}.String()

	pods, err := a.clientset.CoreV1().Pods(a.opts.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, wrapAPIError(fmt.Sprintf("list pods of job %s", jobName), err)
	}

	return lastExitCode(pods.Items, scannerContainer), nil
}
