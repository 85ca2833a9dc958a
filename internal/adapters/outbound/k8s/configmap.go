package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

// ConfigMapSource reads the registry document from one key of a ConfigMap.
type ConfigMapSource struct {
	clientset kubernetes.Interface
	namespace string
	name      string
	key       string
}

// NewConfigMapSource creates a registry source for namespace/name and key.
func NewConfigMapSource(clientset kubernetes.Interface, namespace, name, key string) *ConfigMapSource {
	return &ConfigMapSource{
		clientset: clientset,
		namespace: namespace,
		name:      name,
		key:       key,
	}
}

var _ registry.Source = (*ConfigMapSource)(nil)

func (s *ConfigMapSource) Describe() string {
	return fmt.Sprintf("configmap %s/%s key %s", s.namespace, s.name, s.key)
}

func (s *ConfigMapSource) FetchQuery(ctx context.Context) ([]byte, error) {
	cm, err := s.clientset.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		return nil, wrapAPIError("get configmap", err)
	}

	if data, ok := cm.Data[s.key]; ok {
		return []byte(data), nil
	}

	if data, ok := cm.BinaryData[s.key]; ok {
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", errMissingKey, s.key)
}
