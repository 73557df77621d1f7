package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const serviceAccountNamespaceFile = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"

// KubernetesSource reads the key from a data entry of a Secret
type KubernetesSource struct {
	client    kubernetes.Interface
	namespace string
	name      string
	key       string
}

func NewKubernetesSource(client kubernetes.Interface, namespace, name, key string) (*KubernetesSource, error) {
	if client == nil {
		return nil, errors.New("kubernetes client must not be nil")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("kubernetes secret name is required")
	}
	if key == "" {
		key = DefaultEnvVar
	}
	if namespace == "" {
		namespace = "default"
	}
	return &KubernetesSource{client: client, namespace: namespace, name: name, key: key}, nil
}

// NewKubernetesSourceFromConfig uses the in-cluster config unless a kubeconfig path is set
func NewKubernetesSourceFromConfig(cfg KubernetesConfig) (*KubernetesSource, error) {
	var (
		restConfig *rest.Config
		err        error
	)
	if cfg.Kubeconfig != "" {
		restConfig, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		restConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", err)
	}

	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		if data, readErr := os.ReadFile(serviceAccountNamespaceFile); readErr == nil {
			namespace = strings.TrimSpace(string(data))
		}
	}
	return NewKubernetesSource(client, namespace, cfg.SecretName, cfg.Key)
}

func (s *KubernetesSource) APIKey(ctx context.Context) (string, error) {
	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", missing(s)
		}
		return "", fmt.Errorf("failed to read secret %s/%s: %w", s.namespace, s.name, err)
	}
	value := strings.TrimSpace(string(secret.Data[s.key]))
	if value == "" {
		return "", missing(s)
	}
	return value, nil
}

func (s *KubernetesSource) Describe() string {
	return fmt.Sprintf("Kubernetes secret %s/%s key %s", s.namespace, s.name, s.key)
}
