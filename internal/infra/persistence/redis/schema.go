package redis

import "fmt"

// Key layout, namespaced so several registries can share one Redis server:
//
//	idcard:{namespace}:member:{id}      hash of member fields
//	idcard:{namespace}:members          set of member ids
//	idcard:{namespace}:owner:{ownerRef} string holding the bound member id

// MemberKey returns the hash key for a member.
func MemberKey(namespace, id string) string {
	return fmt.Sprintf("idcard:%s:member:%s", namespace, id)
}

// IndexKey returns the set key listing every member id.
func IndexKey(namespace string) string {
	return fmt.Sprintf("idcard:%s:members", namespace)
}

// OwnerKey returns the key binding an external account to a member id.
func OwnerKey(namespace, ownerRef string) string {
	return fmt.Sprintf("idcard:%s:owner:%s", namespace, ownerRef)
}
