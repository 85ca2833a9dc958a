package k8s

import (
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/utils/ptr"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/scanjob"
	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

func fromDeployment(d *appsv1.Deployment) watcher.Workload {
	return toDomainWorkload(watcher.KindDeployment, &d.ObjectMeta, &d.Spec.Template.Spec)
}

func fromStatefulSet(s *appsv1.StatefulSet) watcher.Workload {
	return toDomainWorkload(watcher.KindStatefulSet, &s.ObjectMeta, &s.Spec.Template.Spec)
}

func fromDaemonSet(d *appsv1.DaemonSet) watcher.Workload {
	return toDomainWorkload(watcher.KindDaemonSet, &d.ObjectMeta, &d.Spec.Template.Spec)
}

func toDomainWorkload(kind watcher.Kind, obj *metav1.ObjectMeta, pod *corev1.PodSpec) watcher.Workload {
	images := make([]string, 0, len(pod.InitContainers)+len(pod.Containers))
	for i := range pod.InitContainers {
		images = append(images, pod.InitContainers[i].Image)
	}

	for i := range pod.Containers {
		images = append(images, pod.Containers[i].Image)
	}

	return watcher.Workload{
		Kind:            kind,
		Namespace:       obj.Namespace,
		Name:            obj.Name,
		UID:             string(obj.UID),
		Labels:          obj.Labels,
		Generation:      obj.Generation,
		ResourceVersion: obj.ResourceVersion,
		Images:          images,
	}
}

func workloadFromObject(obj runtime.Object) (watcher.Workload, bool) {
	switch o := obj.(type) {
	case *appsv1.Deployment:
		return fromDeployment(o), true
	case *appsv1.StatefulSet:
		return fromStatefulSet(o), true
	case *appsv1.DaemonSet:
		return fromDaemonSet(o), true
	}

	return watcher.Workload{}, false
}

var changeTypes = map[watch.EventType]watcher.ChangeType{
	watch.Added:    watcher.ChangeAdded,
	watch.Modified: watcher.ChangeModified,
	watch.Deleted:  watcher.ChangeDeleted,
}

func toDomainChange(ev watch.Event) (watcher.Change, bool) {
	switch ev.Type {
	case watch.Added, watch.Modified, watch.Deleted:
		workload, ok := workloadFromObject(ev.Object)
		if !ok {
			return watcher.Change{}, false
		}

		return watcher.Change{
			Type:            changeTypes[ev.Type],
			Workload:        workload,
			ResourceVersion: workload.ResourceVersion,
		}, true
	case watch.Bookmark:
		accessor, err := meta.Accessor(ev.Object)
		if err != nil {
			return watcher.Change{}, false
		}

		return watcher.Change{
			Type:            watcher.ChangeBookmark,
			ResourceVersion: accessor.GetResourceVersion(),
		}, true
	case watch.Error:
		return watcher.Change{
			Type: watcher.ChangeError,
			Err:  wrapAPIError("watch stream", apierrors.FromObject(ev.Object)),
		}, true
	}

	return watcher.Change{}, false
}

func toDomainJobStatus(job *batchv1.Job) scanjob.JobStatus {
	out := scanjob.JobStatus{
		Name: job.Name,
		Target: scanjob.Target{
			Namespace:   job.Annotations[scanjob.AnnotationNamespace],
			Application: job.Annotations[scanjob.AnnotationApplication],
		},
		Trigger:   job.Annotations[scanjob.AnnotationTrigger],
		RecordID:  job.Annotations[scanjob.AnnotationRecordID],
		Phase:     scanjob.JobPhasePending,
		CreatedAt: job.CreationTimestamp.Time,
	}

	if out.Trigger == "" {
		out.Trigger = job.Labels[scanjob.LabelTrigger]
	}

	if job.Status.StartTime != nil {
		out.StartedAt = job.Status.StartTime.Time
	}

	for i := range job.Status.Conditions {
		cond := &job.Status.Conditions[i]
		if cond.Status != corev1.ConditionTrue {
			continue
		}

		switch cond.Type {
		case batchv1.JobComplete:
			out.Phase = scanjob.JobPhaseSucceeded
		case batchv1.JobFailed:
			out.Phase = scanjob.JobPhaseFailed
		default:
			continue
		}

		out.Reason = cond.Reason
		out.CompletedAt = cond.LastTransitionTime.Time

		if job.Status.CompletionTime != nil {
			out.CompletedAt = job.Status.CompletionTime.Time
		}

		return out
	}

	if job.Status.Active > 0 {
		out.Phase = scanjob.JobPhaseActive
	}

	return out
}

// lastExitCode returns the exit code of the most recently terminated container named
// container across pods, nil when none has terminated.
func lastExitCode(pods []corev1.Pod, container string) *int32 {
	var latest *corev1.ContainerStateTerminated

	for i := range pods {
		for j := range pods[i].Status.ContainerStatuses {
			status := &pods[i].Status.ContainerStatuses[j]
			if status.Name != container || status.State.Terminated == nil {
				continue
			}

			if latest == nil || status.State.Terminated.FinishedAt.After(latest.FinishedAt.Time) {
				latest = status.State.Terminated
			}
		}
	}

	if latest == nil {
		return nil
	}

	return ptr.To(latest.ExitCode)
}
