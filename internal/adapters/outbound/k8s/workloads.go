package k8s

import (
	"context"
	"fmt"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/utils/ptr"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/watcher"
)

type workloadPage func(ctx context.Context, opts metav1.ListOptions) ([]watcher.Workload, metav1.ListMeta, error)

// ListWorkloadsQuery lists every workload of kind across all namespaces and returns
// the resource version of the list to start watching from.
func (a *Adapter) ListWorkloadsQuery(
	ctx context.Context,
	kind watcher.Kind,
) ([]watcher.Workload, string, error) {
	page, err := a.workloadPage(kind)
	if err != nil {
		return nil, "", err
	}

	var (
		workloads []watcher.Workload
		opts      = metav1.ListOptions{Limit: listPageSize}
	)

	for {
		items, meta, err := page(ctx, opts)
		if err != nil {
			return nil, "", wrapAPIError("list "+resourceName(kind), err)
		}

		workloads = append(workloads, items...)

		if meta.Continue == "" {
			return workloads, meta.ResourceVersion, nil
		}

		opts.Continue = meta.Continue
	}
}

func (a *Adapter) workloadPage(kind watcher.Kind) (workloadPage, error) {
	apps := a.clientset.AppsV1()

	switch kind {
	case watcher.KindDeployment:
		return func(ctx context.Context, opts metav1.ListOptions) ([]watcher.Workload, metav1.ListMeta, error) {
			list, err := apps.Deployments(metav1.NamespaceAll).List(ctx, opts)
			if err != nil {
				return nil, metav1.ListMeta{}, err
			}

			out := make([]watcher.Workload, 0, len(list.Items))
			for i := range list.Items {
				out = append(out, fromDeployment(&list.Items[i]))
			}

			return out, list.ListMeta, nil
		}, nil
	case watcher.KindStatefulSet:
		return func(ctx context.Context, opts metav1.ListOptions) ([]watcher.Workload, metav1.ListMeta, error) {
			list, err := apps.StatefulSets(metav1.NamespaceAll).List(ctx, opts)
			if err != nil {
				return nil, metav1.ListMeta{}, err
			}

			out := make([]watcher.Workload, 0, len(list.Items))
			for i := range list.Items {
				out = append(out, fromStatefulSet(&list.Items[i]))
			}

			return out, list.ListMeta, nil
		}, nil
	case watcher.KindDaemonSet:
		return func(ctx context.Context, opts metav1.ListOptions) ([]watcher.Workload, metav1.ListMeta, error) {
			list, err := apps.DaemonSets(metav1.NamespaceAll).List(ctx, opts)
			if err != nil {
				return nil, metav1.ListMeta{}, err
			}

			out := make([]watcher.Workload, 0, len(list.Items))
			for i := range list.Items {
				out = append(out, fromDaemonSet(&list.Items[i]))
			}

			return out, list.ListMeta, nil
		}, nil
	}

	return nil, fmt.Errorf("list %s: %w", kind, errUnsupportedKind)
}

// WatchWorkloadsQuery opens a watch with bookmarks from resourceVersion. The returned
// channel closes when the server ends the request or ctx is done.
func (a *Adapter) WatchWorkloadsQuery(
	ctx context.Context,
	kind watcher.Kind,
	resourceVersion string,
) (<-chan watcher.Change, error) {
	opts := metav1.ListOptions{
		ResourceVersion:     resourceVersion,
		AllowWatchBookmarks: true,
		TimeoutSeconds:      ptr.To(int64(a.opts.WatchTimeout / time.Second)),
	}

	var (
		w   watch.Interface
		err error
	)

	apps := a.clientset.AppsV1()

	switch kind {
	case watcher.KindDeployment:
		w, err = apps.Deployments(metav1.NamespaceAll).Watch(ctx, opts)
	case watcher.KindStatefulSet:
		w, err = apps.StatefulSets(metav1.NamespaceAll).Watch(ctx, opts)
	case watcher.KindDaemonSet:
		w, err = apps.DaemonSets(metav1.NamespaceAll).Watch(ctx, opts)
	default:
		return nil, fmt.Errorf("watch %s: %w", kind, errUnsupportedKind)
	}

	if err != nil {
		return nil, wrapAPIError("watch "+resourceName(kind), err)
	}

	out := make(chan watcher.Change)

	go a.forward(ctx, kind, w, out)

	return out, nil
}

func (a *Adapter) forward(
	ctx context.Context,
	kind watcher.Kind,
	w watch.Interface,
	out chan<- watcher.Change,
) {
	defer close(out)
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.ResultChan():
			if !ok {
				return
			}

			change, ok := toDomainChange(ev)
			if !ok {
				a.logger.DebugContext(ctx, "ignoring unexpected watch event",
					"kind", kind,
					"type", ev.Type,
					"object", fmt.Sprintf("%T", ev.Object),
				)

				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- change:
			}
		}
	}
}

func resourceName(kind watcher.Kind) string {
	return strings.ToLower(string(kind)) + "s"
}
